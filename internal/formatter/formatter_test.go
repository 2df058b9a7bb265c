package formatter_test

import (
	"context"
	"errors"
	"testing"

	"starlit-server/internal/formatter"
	"starlit-server/internal/mocks"
	"starlit-server/internal/models"
	"starlit-server/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCommit_StoryCreatesThreadAndSetsLastStory(t *testing.T) {
	ctx := context.Background()
	threads := store.NewMemoryStore(zap.NewNop())
	f := formatter.New(threads, zap.NewNop())

	story := models.Story{Title: "Pip the Brave", Body: "Pip was brave.", Moral: "Be brave.", Themes: []string{"courage"}}
	res, err := f.Commit(ctx, "", "Tell me a story about a mouse", models.StoryResult(story, ""))
	require.NoError(t, err)
	require.NotEmpty(t, res.ThreadID)

	thread, err := threads.Get(ctx, res.ThreadID)
	require.NoError(t, err)
	require.Len(t, thread.Turns, 2)
	assert.Equal(t, models.RoleUser, thread.Turns[0].Role)
	assert.Equal(t, "Tell me a story about a mouse", thread.Turns[0].Content)
	assert.Equal(t, models.RoleAssistant, thread.Turns[1].Role)
	assert.Equal(t, "Pip the Brave\n\nPip was brave.\n\nMoral: Be brave.", thread.Turns[1].Content)
	require.NotNil(t, thread.LastStory)
	assert.Equal(t, story.Body, thread.LastStory.Body)
	assert.Equal(t, "Be brave.", thread.LastStory.Moral)
	assert.Equal(t, []string{"courage"}, thread.LastStory.Themes)
}

func TestCommit_ModificationReplacesStory(t *testing.T) {
	ctx := context.Background()
	threads := store.NewMemoryStore(zap.NewNop())
	f := formatter.New(threads, zap.NewNop())

	first, err := f.Commit(ctx, "", "story", models.StoryResult(models.Story{Title: "One", Body: "first"}, ""))
	require.NoError(t, err)
	second, err := f.Commit(ctx, first.ThreadID, "make it longer", models.StoryResult(models.Story{Title: "One", Body: "second"}, ""))
	require.NoError(t, err)
	assert.Equal(t, first.ThreadID, second.ThreadID)

	last, err := threads.GetLastStory(ctx, first.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, "second", last.Body)
}

func TestCommit_ConversationalAndErrorKeepStory(t *testing.T) {
	ctx := context.Background()
	threads := store.NewMemoryStore(zap.NewNop())
	f := formatter.New(threads, zap.NewNop())

	res, err := f.Commit(ctx, "", "story", models.StoryResult(models.Story{Title: "One", Body: "first"}, ""))
	require.NoError(t, err)

	_, err = f.Commit(ctx, res.ThreadID, "Goodnight!", models.ConversationalResult("Sweet dreams!", ""))
	require.NoError(t, err)
	_, err = f.Commit(ctx, res.ThreadID, "again", models.ErrorResult("Sorry, try again.", ""))
	require.NoError(t, err)

	thread, err := threads.Get(ctx, res.ThreadID)
	require.NoError(t, err)
	require.Len(t, thread.Turns, 6)
	assert.Equal(t, "Sweet dreams!", thread.Turns[3].Content)
	assert.Equal(t, "Sorry, try again.", thread.Turns[5].Content)
	assert.Equal(t, "first", thread.LastStory.Body)
}

func TestCommit_RecreatesVanishedThread(t *testing.T) {
	ctx := context.Background()
	threads := mocks.NewMockThreadStore(t)
	threads.On("AppendTurn", mock.Anything, "gone", mock.Anything).Return(models.ErrUnknownThread).Once()
	threads.On("Create", mock.Anything).Return("fresh", nil).Once()
	threads.On("AppendTurn", mock.Anything, "fresh", mock.MatchedBy(func(t models.Turn) bool {
		return t.Role == models.RoleUser
	})).Return(nil).Once()
	threads.On("AppendTurn", mock.Anything, "fresh", mock.MatchedBy(func(t models.Turn) bool {
		return t.Role == models.RoleAssistant
	})).Return(nil).Once()

	f := formatter.New(threads, zap.NewNop())
	res, err := f.Commit(ctx, "gone", "hi", models.ConversationalResult("Hello!", "gone"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.ThreadID)
}

func TestCommit_StoreFailure(t *testing.T) {
	ctx := context.Background()
	threads := mocks.NewMockThreadStore(t)
	threads.On("AppendTurn", mock.Anything, "t1", mock.Anything).Return(errors.New("connection refused")).Once()

	f := formatter.New(threads, zap.NewNop())
	res, err := f.Commit(ctx, "t1", "hi", models.ConversationalResult("Hello!", ""))
	assert.Error(t, err)
	assert.Equal(t, "t1", res.ThreadID)
	assert.Equal(t, "Hello!", res.Text)
}
