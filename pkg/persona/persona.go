package persona

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// DefaultInstruction is the system instruction used when the user has not
// picked or written a persona.
const DefaultInstruction = "You are a helpful and friendly AI assistant named EARTH. Provide clear and concise answers."

var ErrNotFound = errors.New("persona not found")

// Persona is a saved system instruction with bookkeeping for the picker UI
// (recents, favorites). Built-in templates become personas once saved.
type Persona struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Instruction string    `yaml:"instruction" json:"instruction"`
	Category    string    `yaml:"category,omitempty" json:"category,omitempty"`
	Icon        string    `yaml:"icon,omitempty" json:"icon,omitempty"`
	CreatedAt   time.Time `yaml:"createdAt" json:"createdAt"`
	LastUsed    time.Time `yaml:"lastUsed,omitempty" json:"lastUsed,omitempty"`
	Favorite    bool      `yaml:"favorite,omitempty" json:"favorite,omitempty"`
}

// Store persists saved personas. Save assigns ID and CreatedAt when absent;
// Update and the bookkeeping mutators return ErrNotFound for unknown ids.
type Store interface {
	List(ctx context.Context) ([]Persona, error)
	Get(ctx context.Context, id string) (Persona, bool, error)
	Save(ctx context.Context, p Persona) (Persona, error)
	Update(ctx context.Context, p Persona) (Persona, error)
	Delete(ctx context.Context, id string) error
	MarkUsed(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (bool, error)
}

// Recent returns the most recently used personas, newest first.
func Recent(personas []Persona, limit int) []Persona {
	used := make([]Persona, 0, len(personas))
	for _, p := range personas {
		if !p.LastUsed.IsZero() {
			used = append(used, p)
		}
	}
	for i := 1; i < len(used); i++ {
		for j := i; j > 0 && used[j].LastUsed.After(used[j-1].LastUsed); j-- {
			used[j], used[j-1] = used[j-1], used[j]
		}
	}
	if limit > 0 && len(used) > limit {
		used = used[:limit]
	}
	return used
}

// Favorites filters personas down to the starred ones, keeping order.
func Favorites(personas []Persona) []Persona {
	out := make([]Persona, 0, len(personas))
	for _, p := range personas {
		if p.Favorite {
			out = append(out, p)
		}
	}
	return out
}
