package router_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"starlit-server/internal/classics"
	"starlit-server/internal/llm"
	"starlit-server/internal/mocks"
	"starlit-server/internal/models"
	"starlit-server/internal/prompts"
	"starlit-server/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(t *testing.T, gw llm.Gateway, opts router.Options) *router.Router {
	t.Helper()
	catalog, err := classics.DefaultCatalog()
	require.NoError(t, err)
	p, err := prompts.NewProvider("", zap.NewNop())
	require.NoError(t, err)
	if gw == nil {
		return router.New(catalog, nil, p, opts, zap.NewNop())
	}
	return router.New(catalog, gw, p, opts, zap.NewNop())
}

func TestRoute_Lexical(t *testing.T) {
	// gateway без ожиданий: лексические решения не должны обращаться к модели
	gw := mocks.NewMockGateway(t)
	r := newRouter(t, gw, router.Options{UseLLM: true, HistoryWindow: 10})

	tests := []struct {
		name     string
		input    string
		live     bool
		wantKind models.IntentKind
		payload  string
	}{
		{"farewell", "Thank you! Goodnight!", false, models.IntentFarewell, ""},
		{"farewell after story", "Goodbye", true, models.IntentFarewell, ""},
		{"goodnight story is a request", "Tell me a goodnight story about a sleepy owl", false, models.IntentNewStory, "Tell me a goodnight story about a sleepy owl"},
		{"greeting", "Hello!", false, models.IntentGreeting, ""},
		{"greeting with request", "Hi! Tell me a story about a dragon", false, models.IntentNewStory, "Hi! Tell me a story about a dragon"},
		{"named classic", "Can you tell me Cinderella?", false, models.IntentRetrieveClassic, "Cinderella"},
		{"classic by alias", "the story of the three little pigs please", true, models.IntentRetrieveClassic, "The Three Little Pigs"},
		{"new story", "Tell me a story about a brave little mouse", false, models.IntentNewStory, "Tell me a story about a brave little mouse"},
		{"new story with live story", "Tell me a new story about a whale", true, models.IntentNewStory, "Tell me a new story about a whale"},
		{"modify live story", "Make them find a treasure instead", true, models.IntentModifyStory, "Make them find a treasure instead"},
		{"thanks with modification", "Thanks! Can you make it longer?", true, models.IntentModifyStory, "Thanks! Can you make it longer?"},
		{"change the ending", "change the ending so they fly home", true, models.IntentModifyStory, "change the ending so they fly home"},
		{"chit-chat", "ok", false, models.IntentOther, "ok"},
		{"chit-chat with live story", "hmm...", true, models.IntentOther, "hmm..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, err := r.Route(context.Background(), tt.input, tt.live, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, intent.Kind)
			assert.Equal(t, tt.payload, intent.Payload)
		})
	}
}

func TestRoute_ModificationWithoutLiveStoryIsNewStory(t *testing.T) {
	r := newRouter(t, nil, router.Options{UseLLM: false})

	for _, input := range []string{"make the hero braver", "Make them find a treasure instead", "add more dragons"} {
		intent, err := r.Route(context.Background(), input, false, nil)
		require.NoError(t, err)
		assert.Equal(t, models.IntentNewStory, intent.Kind, input)
		assert.Equal(t, input, intent.Payload)
	}
}

func TestRoute_LLMClamp(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		live     bool
		response string
		opts     router.Options
		wantKind models.IntentKind
		payload  string
	}{
		{
			name: "modify without live story becomes new story", input: "make the hero braver",
			response: `{"intent": "modify_story", "hint": "braver hero"}`,
			wantKind: models.IntentNewStory, payload: "make the hero braver",
		},
		{
			name: "modify with live story uses hint", input: "the dragon should be purple", live: true,
			response: `{"intent": "modify_story", "hint": "make the dragon purple"}`,
			wantKind: models.IntentModifyStory, payload: "make the dragon purple",
		},
		{
			name: "classic resolved through hint", input: "the one with the glass shoe",
			response: `{"intent": "retrieve_classic", "hint": "Cinderella"}`,
			wantKind: models.IntentRetrieveClassic, payload: "Cinderella",
		},
		{
			name: "unlisted classic is new story", input: "the girl and the snow queen",
			response: `{"intent": "retrieve_classic", "hint": "The Snow Queen"}`,
			wantKind: models.IntentNewStory, payload: "the girl and the snow queen",
		},
		{
			name: "unlisted classic allowed", input: "the girl and the snow queen",
			response: `{"intent": "retrieve_classic", "hint": "The Snow Queen"}`,
			opts:     router.Options{AllowUnlistedClassics: true},
			wantKind: models.IntentRetrieveClassic, payload: "The Snow Queen",
		},
		{
			name: "new story", input: "a dragon who bakes",
			response: "```json\n{\"intent\": \"new_story\", \"hint\": \"baking dragon\"}\n```",
			wantKind: models.IntentNewStory, payload: "a dragon who bakes",
		},
		{
			name: "other for modification without live story", input: "make the hero braver",
			response: `{"intent": "other"}`,
			wantKind: models.IntentNewStory, payload: "make the hero braver",
		},
		{
			name: "greeting for modification without live story", input: "make the hero braver",
			response: `{"intent": "greeting"}`,
			wantKind: models.IntentNewStory, payload: "make the hero braver",
		},
		{
			name: "farewell for modification without live story", input: "make the hero braver",
			response: `{"intent": "farewell"}`,
			wantKind: models.IntentNewStory, payload: "make the hero braver",
		},
		{
			name: "classic for modification without live story", input: "make the hero braver",
			response: `{"intent": "retrieve_classic", "hint": "Cinderella"}`,
			wantKind: models.IntentNewStory, payload: "make the hero braver",
		},
		{
			name: "greeting without greeting phrasing", input: "a dragon who bakes",
			response: `{"intent": "greeting"}`,
			wantKind: models.IntentNewStory, payload: "a dragon who bakes",
		},
		{
			name: "other without chit-chat", input: "a dragon who bakes", live: true,
			response: `{"intent": "other"}`,
			wantKind: models.IntentNewStory, payload: "a dragon who bakes",
		},
		{
			name: "farewell without farewell phrasing", input: "a dragon who bakes",
			response: `{"intent": "farewell"}`,
			wantKind: models.IntentNewStory, payload: "a dragon who bakes",
		},
		{
			name: "unknown intent", input: "a dragon who bakes",
			response: `{"intent": "poem"}`,
			wantKind: models.IntentNewStory, payload: "a dragon who bakes",
		},
		{
			name: "garbage", input: "a dragon who bakes",
			response: `new story I think`,
			wantKind: models.IntentNewStory, payload: "a dragon who bakes",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := mocks.NewMockGateway(t)
			gw.On("Complete", mock.Anything, mock.Anything, mocks.RoleIs(llm.RoleRouter)).Return(tt.response, nil).Once()

			opts := tt.opts
			opts.UseLLM = true
			r := newRouter(t, gw, opts)

			intent, err := r.Route(context.Background(), tt.input, tt.live, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, intent.Kind)
			assert.Equal(t, tt.payload, intent.Payload)
		})
	}
}

func TestRoute_LLMFailureFallsBackToNewStory(t *testing.T) {
	gw := mocks.NewMockGateway(t)
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.Join(models.ErrGenerationUnavailable, errors.New("boom"))).Once()
	r := newRouter(t, gw, router.Options{UseLLM: true})

	intent, err := r.Route(context.Background(), "a dragon who bakes", false, nil)
	require.NoError(t, err)
	assert.Equal(t, models.NewStoryIntent("a dragon who bakes"), intent)
}

func TestRoute_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := mocks.NewMockGateway(t)
	gw.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.Join(models.ErrGenerationUnavailable, context.Canceled)).Once()
	r := newRouter(t, gw, router.Options{UseLLM: true})

	_, err := r.Route(ctx, "a dragon who bakes", false, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRoute_HistoryWindow(t *testing.T) {
	history := []models.Turn{
		{Role: models.RoleUser, Content: "first message"},
		{Role: models.RoleAssistant, Content: "first answer"},
		{Role: models.RoleUser, Content: "second message"},
		{Role: models.RoleAssistant, Content: "second answer"},
	}

	gw := mocks.NewMockGateway(t)
	gw.On("Complete", mock.Anything, mock.MatchedBy(func(p llm.Prompt) bool {
		return !strings.Contains(p.User, "first") &&
			strings.Contains(p.User, "user: second message") &&
			strings.Contains(p.User, "assistant: second answer") &&
			strings.Contains(p.System, "A current story exists: true")
	}), mock.Anything).Return(`{"intent": "modify_story", "hint": "make it purple"}`, nil).Once()
	r := newRouter(t, gw, router.Options{UseLLM: true, HistoryWindow: 2})

	intent, err := r.Route(context.Background(), "what do you think about purple", true, history)
	require.NoError(t, err)
	assert.Equal(t, models.IntentModifyStory, intent.Kind)
	assert.Equal(t, "make it purple", intent.Payload)
}
