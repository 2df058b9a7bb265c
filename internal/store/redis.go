package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"starlit-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ ThreadStore = (*RedisStore)(nil)

// RedisStore хранит тред в трех ключах:
//
//	thread:{id}:meta  - hash с created_at / updated_at
//	thread:{id}:turns - list реплик в JSON
//	thread:{id}:story - JSON живой истории
//
// Каждая запись продлевает TTL всех трех ключей. ttl == 0 - без истечения.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisThreadStore"),
	}
}

func metaKey(id string) string  { return fmt.Sprintf("thread:%s:meta", id) }
func turnsKey(id string) string { return fmt.Sprintf("thread:%s:turns", id) }
func storyKey(id string) string { return fmt.Sprintf("thread:%s:story", id) }

func (s *RedisStore) exists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	n, err := s.client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check thread existence in redis: %w", err)
	}
	return n > 0, nil
}

// Скрипты записи проверяют meta и пишут в одном атомарном шаге, поэтому
// истекший тред не получает осиротевших turns/story.
// KEYS: meta, turns, story. ARGV: payload, updated_at, ttl в мс (0 - без истечения).
const touchLua = `
redis.call("HSET", KEYS[1], "updated_at", ARGV[2])
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call("PEXPIRE", KEYS[1], ttl)
  redis.call("PEXPIRE", KEYS[2], ttl)
  redis.call("PEXPIRE", KEYS[3], ttl)
end
return 1
`

var appendTurnScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("RPUSH", KEYS[2], ARGV[1])
` + touchLua)

var setStoryScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("SET", KEYS[3], ARGV[1])
` + touchLua)

func (s *RedisStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, metaKey(id), "created_at", now, "updated_at", now)
		if s.ttl > 0 {
			pipe.Expire(ctx, metaKey(id), s.ttl)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create thread in redis", zap.Error(err))
		return "", fmt.Errorf("failed to create thread in redis: %w", err)
	}
	s.logger.Debug("Thread created", zap.String("thread_id", id))
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, threadID string) (*models.ConversationThread, error) {
	ok, err := s.exists(ctx, threadID)
	if err != nil || !ok {
		return nil, err
	}

	var (
		metaCmd  *redis.MapStringStringCmd
		turnsCmd *redis.StringSliceCmd
		storyCmd *redis.StringCmd
	)
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		metaCmd = pipe.HGetAll(ctx, metaKey(threadID))
		turnsCmd = pipe.LRange(ctx, turnsKey(threadID), 0, -1)
		storyCmd = pipe.Get(ctx, storyKey(threadID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Error("Failed to read thread from redis", zap.String("thread_id", threadID), zap.Error(err))
		return nil, fmt.Errorf("failed to read thread from redis: %w", err)
	}

	meta := metaCmd.Val()
	if len(meta) == 0 {
		// истек между EXISTS и чтением
		return nil, nil
	}
	thread := &models.ConversationThread{ID: threadID}
	thread.CreatedAt, _ = time.Parse(time.RFC3339Nano, meta["created_at"])
	thread.UpdatedAt, _ = time.Parse(time.RFC3339Nano, meta["updated_at"])

	for _, raw := range turnsCmd.Val() {
		var turn models.Turn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			s.logger.Warn("Skipping corrupted turn", zap.String("thread_id", threadID), zap.Error(err))
			continue
		}
		thread.Turns = append(thread.Turns, turn)
	}

	if raw, err := storyCmd.Result(); err == nil {
		var story models.Story
		if err := json.Unmarshal([]byte(raw), &story); err != nil {
			s.logger.Warn("Corrupted last story ignored", zap.String("thread_id", threadID), zap.Error(err))
		} else {
			thread.LastStory = &story
		}
	}
	return thread, nil
}

func (s *RedisStore) AppendTurn(ctx context.Context, threadID string, turn models.Turn) error {
	if threadID == "" {
		return models.ErrUnknownThread
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	written, err := s.writeIfExists(ctx, appendTurnScript, threadID, data)
	if err != nil {
		s.logger.Error("Failed to append turn in redis", zap.String("thread_id", threadID), zap.Error(err))
		return fmt.Errorf("failed to append turn in redis: %w", err)
	}
	if !written {
		return models.ErrUnknownThread
	}
	return nil
}

func (s *RedisStore) SetLastStory(ctx context.Context, threadID string, story models.Story) error {
	if threadID == "" {
		return nil
	}
	data, err := json.Marshal(story)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}

	written, err := s.writeIfExists(ctx, setStoryScript, threadID, data)
	if err != nil {
		s.logger.Error("Failed to set last story in redis", zap.String("thread_id", threadID), zap.Error(err))
		return fmt.Errorf("failed to set last story in redis: %w", err)
	}
	if !written {
		s.logger.Debug("SetLastStory for unknown thread ignored", zap.String("thread_id", threadID))
	}
	return nil
}

// writeIfExists выполняет скрипт записи; false - meta треда нет.
func (s *RedisStore) writeIfExists(ctx context.Context, script *redis.Script, threadID string, payload []byte) (bool, error) {
	keys := []string{metaKey(threadID), turnsKey(threadID), storyKey(threadID)}
	n, err := script.Run(ctx, s.client, keys,
		payload,
		time.Now().UTC().Format(time.RFC3339Nano),
		s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) GetLastStory(ctx context.Context, threadID string) (*models.Story, error) {
	if threadID == "" {
		return nil, nil
	}
	raw, err := s.client.Get(ctx, storyKey(threadID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		s.logger.Error("Failed to get last story from redis", zap.String("thread_id", threadID), zap.Error(err))
		return nil, fmt.Errorf("failed to get last story from redis: %w", err)
	}
	var story models.Story
	if err := json.Unmarshal([]byte(raw), &story); err != nil {
		return nil, fmt.Errorf("failed to unmarshal last story: %w", err)
	}
	return &story, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
