package attachments

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/earthchat/earth/pkg/chat"
)

// MemoryRepository keeps attachment records in process memory, preserving
// insertion order per conversation.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]chat.Attachment
	order   []string
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: map[string]chat.Attachment{}}
}

func (r *MemoryRepository) Save(_ context.Context, record chat.Attachment) error {
	if record.ID == "" {
		return errors.New("attachment id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ID]; !ok {
		r.order = append(r.order, record.ID)
	}
	r.records[record.ID] = record
	return nil
}

func (r *MemoryRepository) GetByConversation(_ context.Context, conversationID string) ([]chat.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []chat.Attachment{}
	for _, id := range r.order {
		if rec, ok := r.records[id]; ok && rec.ConversationID == conversationID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

func (r *MemoryRepository) DeleteByConversation(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.records {
		if rec.ConversationID == conversationID {
			delete(r.records, id)
		}
	}
	return nil
}
