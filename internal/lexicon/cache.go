package lexicon

import (
	"context"
	"sync/atomic"
	"time"

	apperrors "github.com/adverant/nexus/diktim-ocr/internal/errors"
	"github.com/adverant/nexus/diktim-ocr/internal/logging"
	"github.com/adverant/nexus/diktim-ocr/internal/metrics"
)

// DefaultTTL is how long a snapshot is served before the corpus is re-read.
const DefaultTTL = 300 * time.Second

// Source reads the corpus the lexicon is built from.
type Source interface {
	EnabledExerciseTexts(ctx context.Context) ([]ExerciseText, error)
}

// Cache owns the current snapshot and rebuilds it once it is older than
// the TTL. Readers never block each other; two callers that both observe
// an expired snapshot may both rebuild, and the last one stored wins.
type Cache struct {
	source  Source
	ttl     time.Duration
	clock   func() time.Time
	current atomic.Pointer[Snapshot]
	logger  *logging.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces time.Now as the cache's notion of the current time.
func WithClock(clock func() time.Time) CacheOption {
	return func(c *Cache) { c.clock = clock }
}

// NewCache creates a cache over source. A non-positive ttl means DefaultTTL.
func NewCache(source Source, ttl time.Duration, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		logger: logging.NewLogger("LexiconCache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the snapshot for the cache clock's current time.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	return c.GetOrRebuild(ctx, c.clock())
}

// GetOrRebuild returns the current snapshot, rebuilding it first if it was
// built more than the TTL before now. The returned snapshot is never nil. When
// the rebuild fails the previous snapshot is returned, or an empty one if
// there is none, together with a LEXICON_UNAVAILABLE error.
func (c *Cache) GetOrRebuild(ctx context.Context, now time.Time) (*Snapshot, error) {
	snap := c.current.Load()
	if snap != nil && now.Sub(snap.BuiltAt) < c.ttl {
		return snap, nil
	}

	texts, err := c.source.EnabledExerciseTexts(ctx)
	if err != nil {
		if snap != nil {
			metrics.LexiconRebuilds.WithLabelValues("stale").Inc()
			c.logger.Warn("Lexicon rebuild failed, serving previous snapshot",
				"builtAt", snap.BuiltAt, "entries", snap.Len(), "error", err)
			return snap, apperrors.NewLexiconUnavailableError(err)
		}
		metrics.LexiconRebuilds.WithLabelValues("empty").Inc()
		c.logger.Warn("Lexicon rebuild failed, no previous snapshot; using empty lexicon", "error", err)
		return Empty(now), apperrors.NewLexiconUnavailableError(err)
	}

	fresh := Build(texts, now)
	c.current.Store(fresh)

	metrics.LexiconRebuilds.WithLabelValues("ok").Inc()
	metrics.LexiconEntries.Set(float64(fresh.Len()))
	c.logger.Debug("Lexicon rebuilt", "texts", len(texts), "entries", fresh.Len())

	return fresh, nil
}

// Invalidate drops the current snapshot so the next call rebuilds.
func (c *Cache) Invalidate() {
	c.current.Store(nil)
}
