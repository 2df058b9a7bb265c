// Package formatter фиксирует итог запроса в треде и гарантирует thread_id в ответе.
package formatter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"starlit-server/internal/models"
	"starlit-server/internal/store"

	"go.uber.org/zap"
)

type Formatter struct {
	store  store.ThreadStore
	now    func() time.Time
	logger *zap.Logger
}

func New(threads store.ThreadStore, logger *zap.Logger) *Formatter {
	return &Formatter{
		store:  threads,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.Named("ResponseFormatter"),
	}
}

// Commit записывает реплику пользователя и ответ ассистента, а для историй
// заменяет живую историю треда. Возвращает результат с заполненным ThreadID.
// При ошибке хранилища результат все равно пригоден для отдачи клиенту.
func (f *Formatter) Commit(ctx context.Context, threadID, userInput string, result models.FormattedResponse) (models.FormattedResponse, error) {
	threadID, err := f.ensureThread(ctx, threadID)
	if err != nil {
		return result, err
	}
	result.ThreadID = threadID

	userTurn := models.Turn{Role: models.RoleUser, Content: userInput, Timestamp: f.now()}
	if err := f.store.AppendTurn(ctx, threadID, userTurn); err != nil {
		if !errors.Is(err, models.ErrUnknownThread) {
			return result, fmt.Errorf("failed to append user turn: %w", err)
		}
		// тред пропал между разрешением и записью (например, истек TTL)
		f.logger.Warn("Thread disappeared before commit, recreating", zap.String("thread_id", threadID))
		if threadID, err = f.store.Create(ctx); err != nil {
			return result, fmt.Errorf("failed to recreate thread: %w", err)
		}
		result.ThreadID = threadID
		if err := f.store.AppendTurn(ctx, threadID, userTurn); err != nil {
			return result, fmt.Errorf("failed to append user turn: %w", err)
		}
	}

	assistantTurn := models.Turn{Role: models.RoleAssistant, Content: assistantText(result), Timestamp: f.now()}
	if err := f.store.AppendTurn(ctx, threadID, assistantTurn); err != nil {
		return result, fmt.Errorf("failed to append assistant turn: %w", err)
	}

	if result.Kind == models.ResponseStory {
		story := models.Story{
			Title:  result.Title,
			Body:   result.Story,
			Moral:  result.Moral,
			Themes: append([]string(nil), result.Themes...),
		}
		if err := f.store.SetLastStory(ctx, threadID, story); err != nil {
			return result, fmt.Errorf("failed to set last story: %w", err)
		}
	}

	f.logger.Debug("Response committed",
		zap.String("thread_id", threadID),
		zap.String("kind", string(result.Kind)),
	)
	return result, nil
}

func (f *Formatter) ensureThread(ctx context.Context, threadID string) (string, error) {
	if threadID != "" {
		return threadID, nil
	}
	id, err := f.store.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return id, nil
}

// assistantText - то, что видит пользователь, в виде одной реплики треда.
func assistantText(r models.FormattedResponse) string {
	switch r.Kind {
	case models.ResponseStory:
		var b strings.Builder
		b.WriteString(r.Title)
		b.WriteString("\n\n")
		b.WriteString(r.Story)
		if r.Moral != "" {
			b.WriteString("\n\nMoral: ")
			b.WriteString(r.Moral)
		}
		return b.String()
	case models.ResponseConversational:
		return r.Text
	default:
		return r.Message
	}
}
