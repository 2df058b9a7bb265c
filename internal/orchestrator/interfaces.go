package orchestrator

import (
	"context"

	"starlit-server/internal/generator"
	"starlit-server/internal/models"
	"starlit-server/internal/safety"
)

// IntentRouter классифицирует сообщение.
type IntentRouter interface {
	Route(ctx context.Context, input string, hasLiveStory bool, history []models.Turn) (models.Intent, error)
}

// StoryGenerator пишет один черновик.
type StoryGenerator interface {
	Generate(ctx context.Context, in generator.GenerateInput) (models.StoryDraft, error)
}

// DraftValidator выносит вердикт по черновику.
type DraftValidator interface {
	Validate(ctx context.Context, draft models.StoryDraft) (models.ValidationVerdict, error)
}

// RequestScreener - быстрая словарная проверка запроса пользователя.
type RequestScreener interface {
	Screen(text string) []safety.Finding
}

// MoralSummarizer формулирует мораль принятой истории.
type MoralSummarizer interface {
	Summarize(ctx context.Context, body string) (string, error)
}

// ClassicRetriever отдает пересказ известной сказки.
type ClassicRetriever interface {
	Retrieve(ctx context.Context, query string, tier models.LengthTier) (models.Story, error)
}

// ResponseCommitter фиксирует ответ в треде.
type ResponseCommitter interface {
	Commit(ctx context.Context, threadID, userInput string, result models.FormattedResponse) (models.FormattedResponse, error)
}
