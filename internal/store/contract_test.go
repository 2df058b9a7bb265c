package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"starlit-server/internal/models"
	"starlit-server/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runThreadStoreContract проверяет поведение, общее для всех реализаций ThreadStore.
func runThreadStoreContract(t *testing.T, s store.ThreadStore) {
	ctx := context.Background()

	t.Run("unknown thread reads as none", func(t *testing.T) {
		th, err := s.Get(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, th)

		story, err := s.GetLastStory(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, story)

		th, err = s.Get(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, th)
	})

	t.Run("append to unknown thread fails", func(t *testing.T) {
		err := s.AppendTurn(ctx, "does-not-exist", models.Turn{Role: models.RoleUser, Content: "hi"})
		assert.ErrorIs(t, err, models.ErrUnknownThread)
	})

	t.Run("set last story on unknown thread is a no-op", func(t *testing.T) {
		err := s.SetLastStory(ctx, "does-not-exist", models.Story{Title: "x", Body: "y"})
		require.NoError(t, err)
		th, err := s.Get(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, th)
	})

	t.Run("create, append, read back in order", func(t *testing.T) {
		id, err := s.Create(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		th, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, th)
		assert.Equal(t, id, th.ID)
		assert.Empty(t, th.Turns)
		assert.False(t, th.HasLiveStory())

		require.NoError(t, s.AppendTurn(ctx, id, models.Turn{Role: models.RoleUser, Content: "Tell me a story"}))
		require.NoError(t, s.AppendTurn(ctx, id, models.Turn{Role: models.RoleAssistant, Content: "Once upon a time"}))

		th, err = s.Get(ctx, id)
		require.NoError(t, err)
		require.Len(t, th.Turns, 2)
		assert.Equal(t, models.RoleUser, th.Turns[0].Role)
		assert.Equal(t, "Tell me a story", th.Turns[0].Content)
		assert.Equal(t, models.RoleAssistant, th.Turns[1].Role)
		assert.False(t, th.Turns[0].Timestamp.IsZero())
	})

	t.Run("last story is replaced, not appended", func(t *testing.T) {
		id, err := s.Create(ctx)
		require.NoError(t, err)

		first := models.Story{Title: "The Mouse", Body: "A brave mouse.", Moral: "Be brave."}
		second := models.Story{Title: "The Mouse and the Treasure", Body: "The mouse found a treasure.", Moral: "Sharing is caring."}

		require.NoError(t, s.SetLastStory(ctx, id, first))
		got, err := s.GetLastStory(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, first.Body, got.Body)

		again, err := s.GetLastStory(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, got, again, "GetLastStory must be idempotent")

		require.NoError(t, s.SetLastStory(ctx, id, second))
		got, err = s.GetLastStory(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, second.Title, got.Title)
		assert.Equal(t, second.Body, got.Body)

		th, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, th.HasLiveStory())
		assert.Equal(t, second.Title, th.LastStory.Title)
	})

	t.Run("concurrent appends across threads do not interfere", func(t *testing.T) {
		const threads, perThread = 4, 10
		ids := make([]string, threads)
		for i := range ids {
			id, err := s.Create(ctx)
			require.NoError(t, err)
			ids[i] = id
		}

		var wg sync.WaitGroup
		for _, id := range ids {
			for j := 0; j < perThread; j++ {
				wg.Add(1)
				go func(id string, j int) {
					defer wg.Done()
					err := s.AppendTurn(ctx, id, models.Turn{
						Role:      models.RoleUser,
						Content:   fmt.Sprintf("msg %d", j),
						Timestamp: time.Now().UTC(),
					})
					assert.NoError(t, err)
				}(id, j)
			}
		}
		wg.Wait()

		for _, id := range ids {
			th, err := s.Get(ctx, id)
			require.NoError(t, err)
			assert.Len(t, th.Turns, perThread)
		}
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}
