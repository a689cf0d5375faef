package session

import "github.com/pkg/errors"

// Command misuse is benign: the engine leaves state untouched and the caller
// may ignore the error. These exist so tests and callers can tell rejection
// apart from success; the UI treats them as no-ops.
var (
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrStreamActive         = errors.New("a response is already streaming for this conversation")
	ErrEmptyMessage         = errors.New("message has no text and no attachments")
	ErrNoSuchConversation   = errors.New("no such conversation")
	ErrNoSuchMessage        = errors.New("no such message")
	ErrNotModelMessage      = errors.New("message is not a model response")
	ErrNoUserMessage        = errors.New("no preceding user message")
)
