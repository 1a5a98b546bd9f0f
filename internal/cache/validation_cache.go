package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/yourorg/strategy-sync/internal/model"
)

// ValidationCache stores validation results in Redis keyed by a hash of
// the validated text. A nil *ValidationCache is a valid no-op cache.
type ValidationCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewValidationCache creates a cache with the given TTL.
func NewValidationCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ValidationCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ValidationCache{client: client, ttl: ttl, prefix: "strategy-sync:validate:", logger: logger}
}

// Get returns the cached result for text, or nil on a miss. Cache errors
// degrade to a miss.
func (c *ValidationCache) Get(ctx context.Context, text string) *model.ValidationResult {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := c.client.Get(ctx, c.key(text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("validation cache read failed", zap.Error(err))
		}
		return nil
	}
	var result model.ValidationResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Debug("validation cache entry corrupt", zap.Error(err))
		return nil
	}
	return &result
}

// Set stores a result. Failures are logged and ignored.
func (c *ValidationCache) Set(ctx context.Context, text string, result *model.ValidationResult) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(text), data, c.ttl).Err(); err != nil {
		c.logger.Debug("validation cache write failed", zap.Error(err))
	}
}

func (c *ValidationCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}
