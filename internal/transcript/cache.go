package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cachePrefix = "transcript:"

// DefaultCacheTTL is how long transcripts stay cached.
const DefaultCacheTTL = 24 * time.Hour

// Cache stores fetched transcripts in redis. Redis failures are logged and
// the underlying fetcher is used directly.
type Cache struct {
	next   Fetcher
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCache wraps next with a redis cache.
func NewCache(next Fetcher, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{next: next, client: client, ttl: ttl, logger: logger}
}

// Fetch returns the cached transcript or fetches and stores it.
func (c *Cache) Fetch(ctx context.Context, videoID string) (*Transcript, error) {
	key := cachePrefix + videoID

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t Transcript
		if jsonErr := json.Unmarshal(data, &t); jsonErr == nil {
			c.logger.Debug("transcript cache hit", zap.String("video_id", videoID))
			return &t, nil
		}
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("transcript cache unavailable", zap.Error(err))
	}

	t, err := c.next.Fetch(ctx, videoID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(t)
	if err != nil {
		return t, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache transcript", zap.String("video_id", videoID), zap.Error(err))
	}
	return t, nil
}
