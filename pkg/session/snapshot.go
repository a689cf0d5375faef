package session

import "github.com/earthchat/earth/pkg/chat"

// Snapshot is the read-only projection handed to the presentation layer.
// Everything is deep-copied; mutating a snapshot has no effect on the
// engine.
type Snapshot struct {
	ActiveID      string
	SystemPrompt  string
	Conversations []chat.Conversation
	Streaming     map[string]bool
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := Snapshot{
		ActiveID:      e.activeID,
		SystemPrompt:  e.systemPrompt,
		Conversations: make([]chat.Conversation, len(e.conversations)),
		Streaming:     make(map[string]bool, len(e.streaming)),
	}
	for i, c := range e.conversations {
		out.Conversations[i] = *c.Clone()
	}
	for id, v := range e.streaming {
		out.Streaming[id] = v
	}
	return out
}

// ActiveConversation returns a copy of the active conversation, if any.
func (e *Engine) ActiveConversation() (chat.Conversation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.conversationLocked(e.activeID)
	if c == nil {
		return chat.Conversation{}, false
	}
	return *c.Clone(), true
}

// IsStreaming reports whether a response is in flight for the conversation.
func (e *Engine) IsStreaming(conversationID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streaming[conversationID]
}
