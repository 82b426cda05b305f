package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisJobKeyPrefix    = "exermed:generation:job:"
	redisResultKeyPrefix = "exermed:generation:result:"
	redisJobIndexKey     = "exermed:generation:jobs"
)

// RedisStore is the shared JobStore for multi-instance deployments. Jobs and
// results expire after TTL so the keyspace does not grow without bound.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, j *Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("generation: encode job: %w", err)
	}
	if err := s.rdb.Set(ctx, redisJobKeyPrefix+j.ID.String(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("generation: save job: %w", err)
	}
	err = s.rdb.ZAdd(ctx, redisJobIndexKey, redis.Z{
		Score:  float64(j.CreatedAt.UnixNano()),
		Member: j.ID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("generation: index job: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	data, err := s.rdb.Get(ctx, redisJobKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("generation: load job: %w", err)
	}
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("generation: decode job: %w", err)
	}
	return &j, nil
}

func (s *RedisStore) List(ctx context.Context, limit, offset int) ([]*Job, int, error) {
	total, err := s.rdb.ZCard(ctx, redisJobIndexKey).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("generation: count jobs: %w", err)
	}
	if limit <= 0 {
		limit = int(total)
	}
	ids, err := s.rdb.ZRevRange(ctx, redisJobIndexKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("generation: list jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		j, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Expired job still in the index; drop the stale entry.
			s.rdb.ZRem(ctx, redisJobIndexKey, raw)
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, j)
	}
	return jobs, int(total), nil
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.rdb.Del(ctx, redisJobKeyPrefix+id.String(), redisResultKeyPrefix+id.String()).Err(); err != nil {
		return fmt.Errorf("generation: delete job: %w", err)
	}
	return s.rdb.ZRem(ctx, redisJobIndexKey, id.String()).Err()
}

func (s *RedisStore) SaveResult(ctx context.Context, id uuid.UUID, data []byte) error {
	if err := s.rdb.Set(ctx, redisResultKeyPrefix+id.String(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("generation: save result: %w", err)
	}
	return nil
}

func (s *RedisStore) Result(ctx context.Context, id uuid.UUID) ([]byte, error) {
	data, err := s.rdb.Get(ctx, redisResultKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("generation: load result: %w", err)
	}
	return data, nil
}
