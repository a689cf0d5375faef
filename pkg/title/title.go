// Package title turns the first user message of a conversation into a short
// display title. Failures never propagate; the caller always gets a usable
// string.
package title

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/earthchat/earth/pkg/backend"
)

// FallbackTitle is returned whenever synthesis fails or comes back empty.
const FallbackTitle = "Untitled Chat"

const promptTemplate = `Generate a concise, 2-4 word title for a chat conversation that starts with this prompt: %q. Do not use quotes or special characters in the title.`

type Synthesizer struct {
	completer backend.Completer
}

func NewSynthesizer(completer backend.Completer) *Synthesizer {
	return &Synthesizer{completer: completer}
}

// Synthesize produces a title for the given seed text. It never returns an
// error: backend failures and empty results fall back to FallbackTitle.
func (s *Synthesizer) Synthesize(ctx context.Context, seed string) string {
	raw, err := s.completer.Complete(ctx, fmt.Sprintf(promptTemplate, seed))
	if err != nil {
		log.Debug().Err(err).Msg("title synthesis failed, using fallback")
		return FallbackTitle
	}
	title := Sanitize(raw)
	if title == "" {
		return FallbackTitle
	}
	return title
}

// Sanitize strips quote and markdown-emphasis characters the model tends to
// wrap titles in.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '*', '_', '`', '.', '#':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
