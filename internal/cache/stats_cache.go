package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kizhoo/message-api/internal/service"
)

const statsKey = "stats:aggregate"

// RedisStatsCache keeps the aggregated stats payload for a short TTL so the
// periodic client polling does not hit Postgres on every refresh.
type RedisStatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ service.StatsCache = (*RedisStatsCache)(nil)

func NewRedisStatsCache(rdb *redis.Client, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{rdb: rdb, ttl: ttl}
}

func (c *RedisStatsCache) Get(ctx context.Context) (*service.Stats, error) {
	b, err := c.rdb.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s service.Stats
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *RedisStatsCache) Set(ctx context.Context, s *service.Stats) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, statsKey, b, c.ttl).Err()
}
