package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/earthchat/earth/pkg/chat"
)

// ConversationStore serializes the full conversation document to per-user
// keyed storage. Keys are namespaced by user id; writes always serialize the
// whole current state, so a later write overwrites an earlier one.
type ConversationStore struct {
	kv     KV
	userID string
}

func NewConversationStore(kv KV, userID string) (*ConversationStore, error) {
	if kv == nil {
		return nil, errors.New("kv store is required")
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	return &ConversationStore{kv: kv, userID: userID}, nil
}

func (s *ConversationStore) key() string {
	return fmt.Sprintf("earth:%s:conversations", s.userID)
}

// Load reads the user's document. A user with no stored history yields
// (nil, nil).
func (s *ConversationStore) Load(ctx context.Context) (*chat.Document, error) {
	raw, ok, err := s.kv.Get(ctx, s.key())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load conversations")
	}
	if !ok {
		return nil, nil
	}
	return chat.DecodeDocument(raw)
}

func (s *ConversationStore) Save(ctx context.Context, doc *chat.Document) error {
	raw, err := chat.EncodeDocument(doc)
	if err != nil {
		return err
	}
	return errors.Wrap(s.kv.Set(ctx, s.key(), raw), "failed to save conversations")
}

func (s *ConversationStore) Clear(ctx context.Context) error {
	return errors.Wrap(s.kv.Remove(ctx, s.key()), "failed to clear conversations")
}
