package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache 事件读缓存。任何成功的 reserve/release/更新都要把对应条目清掉。
type Cache interface {
	Get(ctx context.Context, id uint64) (*Event, bool)
	Set(ctx context.Context, e *Event)
	Evict(ctx context.Context, id uint64)
}

// RedisCache 基于 go-redis 的实现。缓存故障一律降级为穿透读库，
// 不向调用方暴露错误。
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, log: log.With().Str("component", "event-cache").Logger()}
}

func cacheKey(id uint64) string {
	return fmt.Sprintf("event:%d", id)
}

func (c *RedisCache) Get(ctx context.Context, id uint64) (*Event, bool) {
	raw, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Uint64("event_id", id).Msg("cache get failed")
		}
		return nil, false
	}
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log.Warn().Err(err).Uint64("event_id", id).Msg("cache entry corrupt, evicting")
		c.Evict(ctx, id)
		return nil, false
	}
	return &e, true
}

func (c *RedisCache) Set(ctx context.Context, e *Event) {
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(e.ID), raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Uint64("event_id", e.ID).Msg("cache set failed")
	}
}

func (c *RedisCache) Evict(ctx context.Context, id uint64) {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		c.log.Warn().Err(err).Uint64("event_id", id).Msg("cache evict failed")
	}
}
