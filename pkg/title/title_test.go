package title

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestSynthesizeSanitizesResult(t *testing.T) {
	s := NewSynthesizer(completerFunc(func(_ context.Context, _ string) (string, error) {
		return "  **\"Space Lizards.\"**  ", nil
	}))
	require.Equal(t, "Space Lizards", s.Synthesize(context.Background(), "tell me about space lizards"))
}

func TestSynthesizeFallsBackOnError(t *testing.T) {
	s := NewSynthesizer(completerFunc(func(_ context.Context, _ string) (string, error) {
		return "", errors.New("backend down")
	}))
	require.Equal(t, FallbackTitle, s.Synthesize(context.Background(), "hello"))
}

func TestSynthesizeFallsBackOnEmptyResult(t *testing.T) {
	s := NewSynthesizer(completerFunc(func(_ context.Context, _ string) (string, error) {
		return "\"\"", nil
	}))
	require.Equal(t, FallbackTitle, s.Synthesize(context.Background(), "hello"))
}

func TestSanitizeKeepsPlainText(t *testing.T) {
	require.Equal(t, "Chat about Go", Sanitize("Chat about Go"))
}
