package store

import (
	"context"
	"sync"
	"time"

	"starlit-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ ThreadStore = (*MemoryStore)(nil)

// MemoryStore - потокобезопасное хранилище в памяти процесса. Данные живут до рестарта.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*models.ConversationThread
	now     func() time.Time
	logger  *zap.Logger
}

func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		threads: make(map[string]*models.ConversationThread),
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.Named("MemoryThreadStore"),
	}
}

func (s *MemoryStore) Get(_ context.Context, threadID string) (*models.ConversationThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[threadID]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (s *MemoryStore) Create(_ context.Context) (string, error) {
	id := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	s.threads[id] = &models.ConversationThread{ID: id, CreatedAt: now, UpdatedAt: now}
	s.mu.Unlock()

	s.logger.Debug("Thread created", zap.String("thread_id", id))
	return id, nil
}

func (s *MemoryStore) AppendTurn(_ context.Context, threadID string, turn models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return models.ErrUnknownThread
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now()
	}
	t.Turns = append(t.Turns, turn)
	t.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) SetLastStory(_ context.Context, threadID string, story models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		s.logger.Debug("SetLastStory for unknown thread ignored", zap.String("thread_id", threadID))
		return nil
	}
	cp := story.Clone()
	t.LastStory = &cp
	t.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) GetLastStory(_ context.Context, threadID string) (*models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[threadID]
	if !ok || t.LastStory == nil {
		return nil, nil
	}
	cp := t.LastStory.Clone()
	return &cp, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
