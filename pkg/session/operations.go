package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/earthchat/earth/pkg/chat"
	"github.com/earthchat/earth/pkg/events"
)

// NewConversation creates an empty conversation, prepends it to the list,
// makes it active and clears the pending composition. It cannot fail.
func (e *Engine) NewConversation() chat.Conversation {
	e.mu.Lock()
	c := chat.NewConversation()
	e.conversations = append([]*chat.Conversation{c}, e.conversations...)
	e.activeID = c.ID
	e.pending = nil
	e.queuePersistLocked()
	snapshot := *c.Clone()
	e.mu.Unlock()

	e.publish(events.NewStateChangedEvent(c.ID))
	return snapshot
}

// SelectConversation switches the active conversation and asynchronously
// loads its attachments into the pending view. Selecting the current active
// conversation is a no-op.
func (e *Engine) SelectConversation(id string) error {
	e.mu.Lock()
	if id == e.activeID {
		e.mu.Unlock()
		return nil
	}
	if e.conversationLocked(id) == nil {
		e.mu.Unlock()
		return ErrNoSuchConversation
	}
	e.activeID = id
	e.pending = nil
	e.queuePersistLocked()
	e.mu.Unlock()

	e.publish(events.NewStateChangedEvent(id))
	e.loadAttachmentsAsync(id)
	return nil
}

// DeleteConversation removes a conversation and its attachment records.
// Attachment cleanup is best-effort and never blocks the removal. Deleting
// the active conversation selects the first remaining one, or creates a
// fresh conversation when none remain.
func (e *Engine) DeleteConversation(ctx context.Context, id string) error {
	if err := e.repo.DeleteByConversation(ctx, id); err != nil {
		log.Warn().Err(err).Str("conversation_id", id).Msg("failed to delete conversation attachments")
	}

	e.mu.Lock()
	idx := -1
	for i, c := range e.conversations {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return ErrNoSuchConversation
	}
	e.conversations = append(e.conversations[:idx], e.conversations[idx+1:]...)
	delete(e.streaming, id)

	var newActive string
	if e.activeID == id {
		if len(e.conversations) == 0 {
			c := chat.NewConversation()
			e.conversations = []*chat.Conversation{c}
		}
		e.activeID = e.conversations[0].ID
		e.pending = nil
		newActive = e.activeID
	}
	e.queuePersistLocked()
	e.mu.Unlock()

	e.publish(events.NewStateChangedEvent(id))
	if newActive != "" {
		e.loadAttachmentsAsync(newActive)
	}
	return nil
}

// DeleteMessage removes the message at index from the conversation.
// Attachment records are keyed per conversation, so removing one message
// does not cascade into the repository.
func (e *Engine) DeleteMessage(conversationID string, index int) error {
	e.mu.Lock()
	c := e.conversationLocked(conversationID)
	if c == nil {
		e.mu.Unlock()
		return ErrNoSuchConversation
	}
	if e.streaming[conversationID] {
		e.mu.Unlock()
		return ErrStreamActive
	}
	if index < 0 || index >= len(c.Messages) {
		e.mu.Unlock()
		return ErrNoSuchMessage
	}
	c.Messages = append(c.Messages[:index], c.Messages[index+1:]...)
	e.queuePersistLocked()
	e.mu.Unlock()

	e.publish(events.NewStateChangedEvent(conversationID))
	return nil
}

// EditMessage replaces the content of the message at index in place. Role
// and attachments are unchanged.
func (e *Engine) EditMessage(conversationID string, index int, newContent string) error {
	e.mu.Lock()
	c := e.conversationLocked(conversationID)
	if c == nil {
		e.mu.Unlock()
		return ErrNoSuchConversation
	}
	if e.streaming[conversationID] {
		e.mu.Unlock()
		return ErrStreamActive
	}
	if index < 0 || index >= len(c.Messages) {
		e.mu.Unlock()
		return ErrNoSuchMessage
	}
	c.Messages[index].Content = newContent
	e.queuePersistLocked()
	e.mu.Unlock()

	e.publish(events.NewStateChangedEvent(conversationID))
	return nil
}

// SetSystemPrompt replaces the AI brain and starts a fresh conversation for
// it, mirroring the original "save settings" behavior.
func (e *Engine) SetSystemPrompt(instruction string) chat.Conversation {
	e.mu.Lock()
	e.systemPrompt = instruction
	e.queuePersistLocked()
	e.mu.Unlock()
	return e.NewConversation()
}

func (e *Engine) SystemPrompt() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.systemPrompt
}

// AttachPending adds an attachment to the current composition. The record
// stays engine-local until send time; nothing is persisted yet.
func (e *Engine) AttachPending(att chat.Attachment) chat.Attachment {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	e.mu.Lock()
	e.pending = append(e.pending, att)
	e.mu.Unlock()
	return att
}

// RemoveAttachment removes an attachment from the composition view and,
// best-effort, from the repository (it may have been persisted by an
// earlier send).
func (e *Engine) RemoveAttachment(ctx context.Context, id string) {
	e.mu.Lock()
	kept := e.pending[:0]
	for _, a := range e.pending {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	e.pending = kept
	e.mu.Unlock()

	if err := e.repo.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Str("attachment_id", id).Msg("failed to delete attachment record")
	}
}

// PendingAttachments returns a copy of the current composition view.
func (e *Engine) PendingAttachments() []chat.Attachment {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]chat.Attachment, len(e.pending))
	copy(out, e.pending)
	return out
}
