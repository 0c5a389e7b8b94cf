package availability

import (
	"context"
	"encoding/json"
	"time"

	"groundbook/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// GridCache stores rendered day grids for the display path.
type GridCache interface {
	Get(ctx context.Context, key string) (*models.AvailabilityResponse, bool)
	Set(ctx context.Context, key string, resp *models.AvailabilityResponse, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// RedisGridCache keeps grids in Redis. Cache failures are logged and
// treated as misses.
type RedisGridCache struct {
	Client *redis.Client
	Logger *zap.Logger
}

func (c *RedisGridCache) Get(ctx context.Context, key string) (*models.AvailabilityResponse, bool) {
	raw, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.Logger.Warn("availability cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var resp models.AvailabilityResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.Logger.Warn("availability cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &resp, true
}

func (c *RedisGridCache) Set(ctx context.Context, key string, resp *models.AvailabilityResponse, ttl time.Duration) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.Logger.Warn("availability cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisGridCache) Delete(ctx context.Context, key string) {
	if err := c.Client.Del(ctx, key).Err(); err != nil {
		c.Logger.Warn("availability cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
