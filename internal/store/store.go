// Package store хранит треды разговоров: реплики и последнюю принятую историю.
// Семантика записи - last-writer-wins в пределах одного треда, треды независимы.
// Ядро треды не удаляет, срок хранения определяет само хранилище.
package store

import (
	"context"

	"starlit-server/internal/models"
)

// ThreadStore - ключ-значение хранилище тредов.
type ThreadStore interface {
	// Get возвращает копию треда или nil, nil для неизвестного id.
	Get(ctx context.Context, threadID string) (*models.ConversationThread, error)
	// Create создает пустой тред и возвращает его id.
	Create(ctx context.Context) (string, error)
	// AppendTurn атомарно добавляет реплику. Для неизвестного id - models.ErrUnknownThread.
	AppendTurn(ctx context.Context, threadID string, turn models.Turn) error
	// SetLastStory атомарно заменяет живую историю. Неизвестный id - no-op.
	SetLastStory(ctx context.Context, threadID string, story models.Story) error
	// GetLastStory возвращает живую историю или nil, nil.
	GetLastStory(ctx context.Context, threadID string) (*models.Story, error)
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
}
