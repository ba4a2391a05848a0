package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/diktim-ocr/internal/lexicon"
	"github.com/adverant/nexus/diktim-ocr/internal/logging"
)

// DefaultCorpusKey is where the shared corpus is stored.
const DefaultCorpusKey = "diktim:corpus:v1"

// RedisCorpusCache shares one corpus read across replicas. It wraps another
// source and stores its result in Redis for ttl. Redis failures are logged and
// the wrapped source is read directly.
type RedisCorpusCache struct {
	client redis.UniversalClient
	inner  lexicon.Source
	key    string
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisCorpusCache wraps inner. An empty key uses DefaultCorpusKey.
func NewRedisCorpusCache(client redis.UniversalClient, inner lexicon.Source, key string, ttl time.Duration) *RedisCorpusCache {
	if key == "" {
		key = DefaultCorpusKey
	}
	return &RedisCorpusCache{
		client: client,
		inner:  inner,
		key:    key,
		ttl:    ttl,
		logger: logging.NewLogger("CorpusCache"),
	}
}

// EnabledExerciseTexts returns the shared corpus, loading it on a miss.
func (c *RedisCorpusCache) EnabledExerciseTexts(ctx context.Context) ([]lexicon.ExerciseText, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var texts []lexicon.ExerciseText
		if err := json.Unmarshal(data, &texts); err == nil {
			c.logger.Debug("Corpus served from Redis", "texts", len(texts))
			return texts, nil
		}
		c.logger.Warn("Discarding undecodable corpus entry", "key", c.key)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("Redis corpus read failed", "key", c.key, "error", err)
	}

	texts, err := c.inner.EnabledExerciseTexts(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal corpus: %w", err)
	}
	if err := c.client.Set(ctx, c.key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Redis corpus write failed", "key", c.key, "error", err)
	}
	return texts, nil
}

// Invalidate drops the shared entry so the next read goes to the wrapped source.
func (c *RedisCorpusCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
