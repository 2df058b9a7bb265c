package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"starlit-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var _ ThreadStore = (*PostgresStore)(nil)

// PostgresStore хранит треды в таблицах threads и thread_turns.
// Каждая операция записи - один SQL-оператор.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger.Named("PgThreadStore")}
}

type threadRow struct {
	ID        string    `db:"id"`
	LastStory []byte    `db:"last_story"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *PostgresStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if _, err := s.db.Exec(ctx, `INSERT INTO threads (id) VALUES ($1)`, id); err != nil {
		s.logger.Error("Failed to create thread", zap.Error(err))
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	s.logger.Debug("Thread created", zap.String("thread_id", id))
	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, threadID string) (*models.ConversationThread, error) {
	if threadID == "" {
		return nil, nil
	}
	var row threadRow
	err := pgxscan.Get(ctx, s.db, &row,
		`SELECT id, last_story, created_at, updated_at FROM threads WHERE id = $1`, threadID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		s.logger.Error("Failed to get thread", zap.String("thread_id", threadID), zap.Error(err))
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	var turns []models.Turn
	err = pgxscan.Select(ctx, s.db, &turns,
		`SELECT role, content, created_at FROM thread_turns WHERE thread_id = $1 ORDER BY id`, threadID)
	if err != nil {
		s.logger.Error("Failed to list thread turns", zap.String("thread_id", threadID), zap.Error(err))
		return nil, fmt.Errorf("failed to list thread turns: %w", err)
	}

	thread := &models.ConversationThread{
		ID:        row.ID,
		Turns:     turns,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.LastStory) > 0 {
		var story models.Story
		if err := json.Unmarshal(row.LastStory, &story); err != nil {
			return nil, fmt.Errorf("failed to unmarshal last story: %w", err)
		}
		thread.LastStory = &story
	}
	return thread, nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, threadID string, turn models.Turn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	// UPDATE ... RETURNING отсекает неизвестные треды без отдельного запроса
	query := `
		WITH t AS (
			UPDATE threads SET updated_at = $4 WHERE id = $1 RETURNING id
		)
		INSERT INTO thread_turns (thread_id, role, content, created_at)
		SELECT id, $2, $3, $4 FROM t`
	tag, err := s.db.Exec(ctx, query, threadID, string(turn.Role), turn.Content, turn.Timestamp)
	if err != nil {
		s.logger.Error("Failed to append turn", zap.String("thread_id", threadID), zap.Error(err))
		return fmt.Errorf("failed to append turn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUnknownThread
	}
	return nil
}

func (s *PostgresStore) SetLastStory(ctx context.Context, threadID string, story models.Story) error {
	data, err := json.Marshal(story)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE threads SET last_story = $2, updated_at = NOW() WHERE id = $1`, threadID, data)
	if err != nil {
		s.logger.Error("Failed to set last story", zap.String("thread_id", threadID), zap.Error(err))
		return fmt.Errorf("failed to set last story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Debug("SetLastStory for unknown thread ignored", zap.String("thread_id", threadID))
	}
	return nil
}

func (s *PostgresStore) GetLastStory(ctx context.Context, threadID string) (*models.Story, error) {
	if threadID == "" {
		return nil, nil
	}
	var raw []byte
	err := pgxscan.Get(ctx, s.db, &raw, `SELECT last_story FROM threads WHERE id = $1`, threadID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last story: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var story models.Story
	if err := json.Unmarshal(raw, &story); err != nil {
		return nil, fmt.Errorf("failed to unmarshal last story: %w", err)
	}
	return &story, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
