package chat

import (
	"github.com/google/uuid"
)

// PlaceholderTitle is the title a conversation carries until the synthesizer
// produces a real one.
const PlaceholderTitle = "New Chat"

// Conversation is a titled, ordered sequence of messages with a stable
// identifier. Message order is chronological and significant.
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

func NewConversation() *Conversation {
	return &Conversation{
		ID:       uuid.NewString(),
		Title:    PlaceholderTitle,
		Messages: []Message{},
	}
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	return &Conversation{
		ID:       c.ID,
		Title:    c.Title,
		Messages: CloneMessages(c.Messages),
	}
}
