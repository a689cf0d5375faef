// Package events carries the engine's notifications to the presentation
// layer: stream lifecycle, title updates, and state changes. Events are
// serialized to JSON and distributed over watermill publishers.
package events

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type EventType string

const (
	// EventTypeStart to EventTypeFinal cover one streamed model response.
	EventTypeStart             EventType = "start"
	EventTypePartialCompletion EventType = "partial"
	EventTypeFinal             EventType = "final"
	EventTypeError             EventType = "error"

	// Title synthesis resolved for a conversation.
	EventTypeTitleUpdated EventType = "title-updated"

	// Conversation list or selection changed.
	EventTypeStateChanged EventType = "state-changed"

	// Non-fatal notices (e.g. attachment load failure on switch).
	EventTypeNotice EventType = "notice"
)

type Event interface {
	Type() EventType
	ConversationID() string
	Payload() []byte
}

type EventImpl struct {
	Type_           EventType `json:"type"`
	ConversationID_ string    `json:"conversationID"`

	// set when the event was deserialized from JSON
	payload []byte
}

func (e *EventImpl) Type() EventType        { return e.Type_ }
func (e *EventImpl) ConversationID() string { return e.ConversationID_ }
func (e *EventImpl) Payload() []byte        { return e.payload }

var _ Event = (*EventImpl)(nil)

// EventStart marks the opening of a streamed response.
type EventStart struct {
	EventImpl
}

func NewStartEvent(conversationID string) *EventStart {
	return &EventStart{
		EventImpl: EventImpl{Type_: EventTypeStart, ConversationID_: conversationID},
	}
}

// EventPartialCompletion carries one delta plus the completion accumulated
// so far.
type EventPartialCompletion struct {
	EventImpl
	Delta      string `json:"delta"`
	Completion string `json:"completion"`
}

func NewPartialCompletionEvent(conversationID, delta, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl:  EventImpl{Type_: EventTypePartialCompletion, ConversationID_: conversationID},
		Delta:      delta,
		Completion: completion,
	}
}

// EventFinal carries the complete response text.
type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(conversationID, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{Type_: EventTypeFinal, ConversationID_: conversationID},
		Text:      text,
	}
}

// EventError reports a terminal stream failure.
type EventError struct {
	EventImpl
	ErrorString string `json:"error"`
}

func NewErrorEvent(conversationID string, err error) *EventError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, ConversationID_: conversationID},
		ErrorString: msg,
	}
}

// EventTitleUpdated reports a synthesized title applied to its originating
// conversation.
type EventTitleUpdated struct {
	EventImpl
	Title string `json:"title"`
}

func NewTitleUpdatedEvent(conversationID, title string) *EventTitleUpdated {
	return &EventTitleUpdated{
		EventImpl: EventImpl{Type_: EventTypeTitleUpdated, ConversationID_: conversationID},
		Title:     title,
	}
}

// EventStateChanged signals that the conversation list or active selection
// changed; the presentation layer re-reads its projection.
type EventStateChanged struct {
	EventImpl
}

func NewStateChangedEvent(conversationID string) *EventStateChanged {
	return &EventStateChanged{
		EventImpl: EventImpl{Type_: EventTypeStateChanged, ConversationID_: conversationID},
	}
}

// EventNotice is a non-fatal, user-visible notice.
type EventNotice struct {
	EventImpl
	Message string `json:"message"`
}

func NewNoticeEvent(conversationID, message string) *EventNotice {
	return &EventNotice{
		EventImpl: EventImpl{Type_: EventTypeNotice, ConversationID_: conversationID},
		Message:   message,
	}
}

// NewEventFromJSON decodes a serialized event back into its concrete type.
func NewEventFromJSON(b []byte) (Event, error) {
	var probe struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, errors.Wrap(err, "failed to probe event type")
	}

	var ret Event
	switch probe.Type {
	case EventTypeStart:
		ret = &EventStart{}
	case EventTypePartialCompletion:
		ret = &EventPartialCompletion{}
	case EventTypeFinal:
		ret = &EventFinal{}
	case EventTypeError:
		ret = &EventError{}
	case EventTypeTitleUpdated:
		ret = &EventTitleUpdated{}
	case EventTypeStateChanged:
		ret = &EventStateChanged{}
	case EventTypeNotice:
		ret = &EventNotice{}
	default:
		return nil, errors.Errorf("unknown event type %q", probe.Type)
	}
	if err := json.Unmarshal(b, ret); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s event", probe.Type)
	}
	setPayload(ret, b)
	return ret, nil
}

func setPayload(e Event, b []byte) {
	switch v := e.(type) {
	case *EventStart:
		v.payload = b
	case *EventPartialCompletion:
		v.payload = b
	case *EventFinal:
		v.payload = b
	case *EventError:
		v.payload = b
	case *EventTitleUpdated:
		v.payload = b
	case *EventStateChanged:
		v.payload = b
	case *EventNotice:
		v.payload = b
	}
}
