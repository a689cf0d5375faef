// Package store provides the durable per-user key-value persistence layer
// and the conversation store built on top of it.
package store

import (
	"context"
	"sync"
)

// KV is the durable store contract: per-key get/set/remove of serialized
// JSON strings. No transactions, no atomicity across keys, no enumeration.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryKV keeps entries in process memory. Used in tests and when running
// without a durable backing file.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]string
}

var _ KV = (*MemoryKV)(nil)

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: map[string]string{}}
}

func (s *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *MemoryKV) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *MemoryKV) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
