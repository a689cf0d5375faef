package persona

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSaveAssignsIDAndCreatedAt(t *testing.T) {
	s := NewMemoryStore()
	saved, err := s.Save(context.Background(), Persona{Name: "Pirate", Instruction: "talk like a pirate"})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	require.False(t, saved.CreatedAt.IsZero())

	got, ok, err := s.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, saved, got)
}

func TestMemoryStoreUpdatePreservesCreatedAt(t *testing.T) {
	s := NewMemoryStore()
	saved, err := s.Save(context.Background(), Persona{Name: "Pirate", Instruction: "arr"})
	require.NoError(t, err)

	saved.Name = "Captain"
	saved.CreatedAt = time.Time{}
	updated, err := s.Update(context.Background(), saved)
	require.NoError(t, err)
	require.Equal(t, "Captain", updated.Name)
	require.False(t, updated.CreatedAt.IsZero())

	_, err = s.Update(context.Background(), Persona{ID: "missing"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreToggleFavoriteAndMarkUsed(t *testing.T) {
	s := NewMemoryStore()
	saved, err := s.Save(context.Background(), Persona{Name: "Tutor"})
	require.NoError(t, err)

	fav, err := s.ToggleFavorite(context.Background(), saved.ID)
	require.NoError(t, err)
	require.True(t, fav)
	fav, err = s.ToggleFavorite(context.Background(), saved.ID)
	require.NoError(t, err)
	require.False(t, fav)

	require.NoError(t, s.MarkUsed(context.Background(), saved.ID))
	got, _, err := s.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	require.False(t, got.LastUsed.IsZero())
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	personas := []Persona{
		{ID: "a", LastUsed: base.Add(time.Minute)},
		{ID: "never"},
		{ID: "b", LastUsed: base.Add(3 * time.Minute)},
		{ID: "c", LastUsed: base.Add(2 * time.Minute)},
	}
	recent := Recent(personas, 2)
	require.Len(t, recent, 2)
	require.Equal(t, "b", recent[0].ID)
	require.Equal(t, "c", recent[1].ID)
}

func TestFavoritesFilters(t *testing.T) {
	personas := []Persona{
		{ID: "a", Favorite: true},
		{ID: "b"},
		{ID: "c", Favorite: true},
	}
	favs := Favorites(personas)
	require.Len(t, favs, 2)
	require.Equal(t, "a", favs[0].ID)
	require.Equal(t, "c", favs[1].ID)
}

func TestYAMLFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")

	s, err := NewYAMLFileStore(path)
	require.NoError(t, err)
	saved, err := s.Save(context.Background(), Persona{Name: "Pirate", Instruction: "arr", Icon: "🏴"})
	require.NoError(t, err)
	_, err = s.ToggleFavorite(context.Background(), saved.ID)
	require.NoError(t, err)

	reopened, err := NewYAMLFileStore(path)
	require.NoError(t, err)
	personas, err := reopened.List(context.Background())
	require.NoError(t, err)
	require.Len(t, personas, 1)
	require.Equal(t, "Pirate", personas[0].Name)
	require.Equal(t, "arr", personas[0].Instruction)
	require.True(t, personas[0].Favorite)

	require.NoError(t, reopened.Delete(context.Background(), saved.ID))
	again, err := NewYAMLFileStore(path)
	require.NoError(t, err)
	personas, err = again.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, personas)
}

func TestYAMLFileStoreMissingFileIsEmpty(t *testing.T) {
	s, err := NewYAMLFileStore(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	personas, err := s.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, personas)
}

func TestTemplateLookups(t *testing.T) {
	require.NotEmpty(t, Templates())
	for _, c := range Categories() {
		for _, tpl := range TemplatesByCategory(c.ID) {
			require.Equal(t, c.ID, tpl.Category)
			require.NotEmpty(t, tpl.Instruction)
		}
	}

	hits := SearchTemplates("rpg")
	require.Len(t, hits, 1)
	require.Equal(t, "game-master", hits[0].ID)
}
