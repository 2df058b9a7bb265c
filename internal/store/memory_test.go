package store_test

import (
	"context"
	"testing"

	"starlit-server/internal/models"
	"starlit-server/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStore_Contract(t *testing.T) {
	runThreadStoreContract(t, store.NewMemoryStore(zap.NewNop()))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(zap.NewNop())

	id, err := s.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SetLastStory(ctx, id, models.Story{Title: "A", Body: "B", Themes: []string{"kindness"}}))

	th, err := s.Get(ctx, id)
	require.NoError(t, err)
	th.LastStory.Title = "mutated"
	th.LastStory.Themes[0] = "mutated"
	th.Turns = append(th.Turns, models.Turn{Content: "sneaky"})

	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "A", again.LastStory.Title)
	assert.Equal(t, []string{"kindness"}, again.LastStory.Themes)
	assert.Empty(t, again.Turns)
}
