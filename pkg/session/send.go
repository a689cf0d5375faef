package session

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/earthchat/earth/pkg/chat"
	"github.com/earthchat/earth/pkg/events"
)

// StreamErrorMessage replaces the model placeholder when a stream fails.
const StreamErrorMessage = "An error occurred. The AI brain might be overloaded. Please try again."

// RegeneratingMessage is the transient marker shown while a response is
// being regenerated in place.
const RegeneratingMessage = "Regenerating..."

// SendMessage appends a user message and an empty model placeholder to the
// active conversation (optimistic update), persists supplied attachments
// tagged with the conversation id, races title synthesis for a first
// message, and streams the model response into the placeholder.
//
// When attachments is nil, the engine's pending composition is sent.
// Rejections (ErrEmptyMessage, ErrStreamActive, ErrNoActiveConversation)
// leave state untouched.
func (e *Engine) SendMessage(ctx context.Context, text string, attachmentList []chat.Attachment) error {
	e.mu.Lock()
	if e.activeID == "" {
		e.mu.Unlock()
		return ErrNoActiveConversation
	}
	if attachmentList == nil {
		attachmentList = make([]chat.Attachment, len(e.pending))
		copy(attachmentList, e.pending)
	}
	if strings.TrimSpace(text) == "" && len(attachmentList) == 0 {
		e.mu.Unlock()
		return ErrEmptyMessage
	}
	conv := e.conversationLocked(e.activeID)
	convID := conv.ID
	if e.streaming[convID] {
		e.mu.Unlock()
		return ErrStreamActive
	}

	for i := range attachmentList {
		if attachmentList[i].ID == "" {
			attachmentList[i].ID = uuid.NewString()
		}
		attachmentList[i].ConversationID = convID
	}

	firstMessage := len(conv.Messages) == 0
	history := chat.CloneMessages(conv.Messages)
	conv.Messages = append(conv.Messages, chat.NewUserMessage(text, attachmentList...))
	conv.Messages = append(conv.Messages, chat.NewModelMessage(""))
	placeholderIndex := len(conv.Messages) - 1
	e.streaming[convID] = true
	systemPrompt := e.systemPrompt
	prompt := chat.FlattenPrompt(text, attachmentList)
	e.queuePersistLocked()
	e.mu.Unlock()

	e.publish(events.NewStartEvent(convID))

	// Attachment persistence is best-effort and must not block the send.
	if len(attachmentList) > 0 {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for _, a := range attachmentList {
				if err := e.repo.Save(context.Background(), a); err != nil {
					log.Warn().Err(err).Str("attachment_id", a.ID).Msg("failed to persist attachment")
				}
			}
		}()
	}

	// Title synthesis races the send flow. The result is applied to the
	// originally targeted conversation by id, never to "whatever is active".
	if firstMessage {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			t := e.titles.Synthesize(context.Background(), text)
			e.applyTitle(convID, t)
		}()
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runStream(convID, placeholderIndex, systemPrompt, history, prompt)
	}()
	return nil
}

// RegenerateResponse re-runs inference for the model message at index,
// mutating it in place. The prompt is rebuilt from the nearest preceding
// user message; without one the command is a no-op (ErrNoUserMessage).
func (e *Engine) RegenerateResponse(ctx context.Context, conversationID string, index int) error {
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
	if c.Messages[index].Role != chat.RoleModel {
		e.mu.Unlock()
		return ErrNotModelMessage
	}

	userIndex := -1
	for i := index - 1; i >= 0; i-- {
		if c.Messages[i].Role == chat.RoleUser {
			userIndex = i
			break
		}
	}
	if userIndex < 0 {
		e.mu.Unlock()
		return ErrNoUserMessage
	}

	userMsg := c.Messages[userIndex]
	history := chat.CloneMessages(c.Messages[:userIndex])
	prompt := chat.FlattenPrompt(userMsg.Content, userMsg.Attachments)
	c.Messages[index].Content = RegeneratingMessage
	e.streaming[conversationID] = true
	systemPrompt := e.systemPrompt
	e.queuePersistLocked()
	e.mu.Unlock()

	e.publish(events.NewStartEvent(conversationID))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runStream(conversationID, index, systemPrompt, history, prompt)
	}()
	return nil
}

// runStream opens the stream and folds each delta into the target message as
// the cumulative concatenation of everything received so far. The stream
// belongs to its conversation: switching the active selection does not
// cancel it, and its patches land by id.
func (e *Engine) runStream(conversationID string, messageIndex int, systemPrompt string, history []chat.Message, prompt string) {
	handle, err := e.backend.NewChat(systemPrompt, history)
	if err != nil {
		e.failStream(conversationID, messageIndex, err)
		return
	}
	stream, err := handle.Send(context.Background(), prompt)
	if err != nil {
		e.failStream(conversationID, messageIndex, err)
		return
	}

	var buf strings.Builder
	for delta := range stream.Deltas() {
		buf.WriteString(delta)
		completion := buf.String()
		e.applyMessageContent(conversationID, messageIndex, completion)
		e.publish(events.NewPartialCompletionEvent(conversationID, delta, completion))
	}
	if err := stream.Err(); err != nil {
		e.failStream(conversationID, messageIndex, err)
		return
	}

	e.finishStream(conversationID)
	e.publish(events.NewFinalEvent(conversationID, buf.String()))
}

func (e *Engine) failStream(conversationID string, messageIndex int, err error) {
	log.Warn().Err(err).Str("conversation_id", conversationID).Msg("stream failed")
	e.applyMessageContent(conversationID, messageIndex, StreamErrorMessage)
	e.finishStream(conversationID)
	e.publish(events.NewErrorEvent(conversationID, err))
}

// finishStream clears the streaming flag and, if the conversation is still
// the active one, resets the pending composition.
func (e *Engine) finishStream(conversationID string) {
	e.mu.Lock()
	delete(e.streaming, conversationID)
	if e.activeID == conversationID {
		e.pending = nil
	}
	e.mu.Unlock()
}

// applyMessageContent patches a message by conversation id if the
// conversation still exists; a stream whose conversation was deleted
// quietly drops its updates.
func (e *Engine) applyMessageContent(conversationID string, index int, content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.conversationLocked(conversationID)
	if c == nil || index < 0 || index >= len(c.Messages) {
		return
	}
	c.Messages[index].Content = content
	e.queuePersistLocked()
}

func (e *Engine) applyTitle(conversationID string, newTitle string) {
	e.mu.Lock()
	c := e.conversationLocked(conversationID)
	if c == nil {
		e.mu.Unlock()
		return
	}
	c.Title = newTitle
	e.queuePersistLocked()
	e.mu.Unlock()

	e.publish(events.NewTitleUpdatedEvent(conversationID, newTitle))
}
