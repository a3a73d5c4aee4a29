package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSequencer serves per-day ticket counts from Redis INCR.  Keys expire
// after ttl so old days do not accumulate.
type RedisSequencer struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSequencer(rdb *redis.Client, prefix string, ttl time.Duration) *RedisSequencer {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisSequencer{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Next seeds the key with start-1 on first use and increments it.
func (s *RedisSequencer) Next(ctx context.Context, name string, start int64) (int64, error) {
	key := s.prefix + name
	pipe := s.rdb.TxPipeline()
	pipe.SetNX(ctx, key, start-1, s.ttl)
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return incr.Val(), nil
}

// DaySequencer picks Redis when a client is configured and falls back to
// the MySQL counter table otherwise.
func DaySequencer(rdb *redis.Client, fallback Sequencer) Sequencer {
	if rdb == nil {
		return fallback
	}
	return NewRedisSequencer(rdb, "fleet:seq:", 48*time.Hour)
}
