// Package openai implements the model backend on top of the OpenAI chat
// completions API, always in streaming mode for chat sends.
package openai

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/earthchat/earth/pkg/backend"
	"github.com/earthchat/earth/pkg/chat"
)

const DefaultModel = go_openai.GPT3Dot5Turbo

type Backend struct {
	client *go_openai.Client
	model  string
}

var _ backend.Backend = (*Backend)(nil)

type Option func(*Backend)

func WithModel(model string) Option {
	return func(b *Backend) {
		b.model = model
	}
}

func New(apiKey string, options ...Option) (*Backend, error) {
	if apiKey == "" {
		return nil, errors.New("no API key provided")
	}
	ret := &Backend{
		client: go_openai.NewClient(apiKey),
		model:  DefaultModel,
	}
	for _, option := range options {
		option(ret)
	}
	return ret, nil
}

// NewBackendWithConfig supports custom base URLs (proxies, compatible APIs).
func NewBackendWithConfig(config go_openai.ClientConfig, options ...Option) *Backend {
	ret := &Backend{
		client: go_openai.NewClientWithConfig(config),
		model:  DefaultModel,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (b *Backend) NewChat(systemPrompt string, history []chat.Message) (backend.Chat, error) {
	messages := make([]go_openai.ChatCompletionMessage, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range history {
		messages = append(messages, go_openai.ChatCompletionMessage{
			Role:    mapRole(m.Role),
			Content: chat.FlattenPrompt(m.Content, m.Attachments),
		})
	}
	return &chatHandle{backend: b, messages: messages}, nil
}

func (b *Backend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, go_openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []go_openai.ChatCompletionMessage{
			{Role: go_openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "completion request failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type chatHandle struct {
	backend  *Backend
	messages []go_openai.ChatCompletionMessage
}

func (h *chatHandle) Send(ctx context.Context, prompt string) (*backend.Stream, error) {
	req := go_openai.ChatCompletionRequest{
		Model: h.backend.model,
		Messages: append(append([]go_openai.ChatCompletionMessage{}, h.messages...),
			go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleUser,
				Content: prompt,
			}),
		Stream: true,
	}

	stream, err := h.backend.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("OpenAI streaming request failed")
		return nil, errors.Wrap(err, "failed to open completion stream")
	}

	out := backend.NewStream(16)
	go func() {
		defer func() {
			if err := stream.Close(); err != nil {
				log.Debug().Err(err).Msg("failed to close OpenAI stream")
			}
		}()

		chunkCount := 0
		for {
			select {
			case <-ctx.Done():
				out.Fail(ctx.Err())
				return
			default:
			}

			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				log.Debug().Int("chunks_received", chunkCount).Msg("OpenAI stream completed")
				out.Close()
				return
			}
			if err != nil {
				log.Error().Err(err).Int("chunks_received", chunkCount).Msg("OpenAI stream receive failed")
				out.Fail(err)
				return
			}
			chunkCount++

			if len(response.Choices) == 0 {
				continue
			}
			if delta := response.Choices[0].Delta.Content; delta != "" {
				out.Push(delta)
			}
		}
	}()
	return out, nil
}

func mapRole(role chat.Role) string {
	switch role {
	case chat.RoleModel:
		return go_openai.ChatMessageRoleAssistant
	case chat.RoleUser:
		return go_openai.ChatMessageRoleUser
	default:
		return go_openai.ChatMessageRoleUser
	}
}
