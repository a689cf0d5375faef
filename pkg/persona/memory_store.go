package persona

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps personas in memory, in insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	personas []Persona
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) List(_ context.Context) ([]Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Persona, len(s.personas))
	copy(out, s.personas)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Persona, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.personas {
		if p.ID == id {
			return p, true, nil
		}
	}
	return Persona{}, false, nil
}

func (s *MemoryStore) Save(_ context.Context, p Persona) (Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.personas = append(s.personas, p)
	return p, nil
}

func (s *MemoryStore) Update(_ context.Context, p Persona) (Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(p)
}

func (s *MemoryStore) updateLocked(p Persona) (Persona, error) {
	for i := range s.personas {
		if s.personas[i].ID == p.ID {
			p.CreatedAt = s.personas[i].CreatedAt
			s.personas[i] = p
			return p, nil
		}
	}
	return Persona{}, ErrNotFound
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.personas {
		if s.personas[i].ID == id {
			s.personas = append(s.personas[:i], s.personas[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) MarkUsed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.personas {
		if s.personas[i].ID == id {
			s.personas[i].LastUsed = s.now()
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ToggleFavorite(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.personas {
		if s.personas[i].ID == id {
			s.personas[i].Favorite = !s.personas[i].Favorite
			return s.personas[i].Favorite, nil
		}
	}
	return false, ErrNotFound
}
