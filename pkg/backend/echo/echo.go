// Package echo provides a model backend that replays text as per-rune
// deltas. It is used for offline development and tests.
package echo

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/earthchat/earth/pkg/backend"
	"github.com/earthchat/earth/pkg/chat"
)

// Backend streams Response (or the prompt itself when Response is empty)
// back one rune at a time. FailAfter > 0 injects FailErr after that many
// deltas, for exercising mid-stream failure paths.
type Backend struct {
	TimePerRune time.Duration
	Response    string
	FailAfter   int
	FailErr     error
}

var _ backend.Backend = (*Backend)(nil)

func New() *Backend {
	return &Backend{}
}

func (b *Backend) NewChat(systemPrompt string, history []chat.Message) (backend.Chat, error) {
	return &chatHandle{backend: b}, nil
}

func (b *Backend) Complete(_ context.Context, prompt string) (string, error) {
	if b.Response != "" {
		return b.Response, nil
	}
	return prompt, nil
}

type chatHandle struct {
	backend *Backend
}

func (h *chatHandle) Send(ctx context.Context, prompt string) (*backend.Stream, error) {
	if prompt == "" {
		return nil, errors.New("no input")
	}
	text := h.backend.Response
	if text == "" {
		text = prompt
	}

	out := backend.NewStream(16)
	go func() {
		sent := 0
		for _, r := range text {
			if h.backend.FailAfter > 0 && sent >= h.backend.FailAfter {
				err := h.backend.FailErr
				if err == nil {
					err = errors.New("echo backend failure")
				}
				out.Fail(err)
				return
			}
			if h.backend.TimePerRune > 0 {
				select {
				case <-ctx.Done():
					out.Fail(ctx.Err())
					return
				case <-time.After(h.backend.TimePerRune):
				}
			}
			out.Push(string(r))
			sent++
		}
		out.Close()
	}()
	return out, nil
}
