package persona

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// YAMLFileStore persists personas as a YAML document on disk. Every mutation
// rewrites the file atomically (write to tmp, then rename).
type YAMLFileStore struct {
	mu    sync.Mutex
	path  string
	store *MemoryStore
}

var _ Store = (*YAMLFileStore)(nil)

func NewYAMLFileStore(path string) (*YAMLFileStore, error) {
	if path == "" {
		return nil, errors.New("persona store path is required")
	}
	s := &YAMLFileStore{path: path, store: NewMemoryStore()}
	if err := s.loadFromDisk(); err != nil {
		return nil, err
	}
	return s, nil
}

type fileDocument struct {
	Personas []Persona `yaml:"personas"`
}

func (s *YAMLFileStore) loadFromDisk() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to read persona store")
	}
	var doc fileDocument
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return errors.Wrap(err, "failed to parse persona store")
	}
	s.store = NewMemoryStore()
	s.store.personas = doc.Personas
	return nil
}

func (s *YAMLFileStore) persistLocked(ctx context.Context) error {
	personas, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(fileDocument{Personas: personas})
	if err != nil {
		return errors.Wrap(err, "failed to encode persona store")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create persona store directory")
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, b, 0o644); err != nil {
		return errors.Wrap(err, "failed to write persona store")
	}
	return os.Rename(tmpPath, s.path)
}

func (s *YAMLFileStore) List(ctx context.Context) ([]Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.List(ctx)
}

func (s *YAMLFileStore) Get(ctx context.Context, id string) (Persona, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(ctx, id)
}

func (s *YAMLFileStore) Save(ctx context.Context, p Persona) (Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved, err := s.store.Save(ctx, p)
	if err != nil {
		return Persona{}, err
	}
	if err := s.persistLocked(ctx); err != nil {
		return Persona{}, err
	}
	return saved, nil
}

func (s *YAMLFileStore) Update(ctx context.Context, p Persona) (Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated, err := s.store.Update(ctx, p)
	if err != nil {
		return Persona{}, err
	}
	if err := s.persistLocked(ctx); err != nil {
		return Persona{}, err
	}
	return updated, nil
}

func (s *YAMLFileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	return s.persistLocked(ctx)
}

func (s *YAMLFileStore) MarkUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.MarkUsed(ctx, id); err != nil {
		return err
	}
	return s.persistLocked(ctx)
}

func (s *YAMLFileStore) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fav, err := s.store.ToggleFavorite(ctx, id)
	if err != nil {
		return false, err
	}
	if err := s.persistLocked(ctx); err != nil {
		return false, err
	}
	return fav, nil
}
