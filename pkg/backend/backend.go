package backend

import (
	"context"

	"github.com/earthchat/earth/pkg/chat"
)

// Completer issues a one-shot, non-streaming completion. Title synthesis is
// the only core caller.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Chat is a handle bound to a system prompt and prior message history.
// Send opens one streamed exchange; the handle itself holds no mutable state,
// so the engine creates a fresh handle per send from the current history.
type Chat interface {
	Send(ctx context.Context, prompt string) (*Stream, error)
}

// Backend is the model backend contract: a factory for chat handles plus a
// one-shot completion call.
type Backend interface {
	Completer
	NewChat(systemPrompt string, history []chat.Message) (Chat, error)
}
