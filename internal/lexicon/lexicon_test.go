package lexicon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/adverant/nexus/diktim-ocr/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls atomic.Int32
	texts []ExerciseText
	err   error
}

func (s *countingSource) EnabledExerciseTexts(context.Context) ([]ExerciseText, error) {
	s.calls.Add(1)
	return s.texts, s.err
}

func TestBuildIndexesLowercaseTokens(t *testing.T) {
	snap := Build([]ExerciseText{
		{Prompt: "Unë  shkoj në SHTËPI.", Answer: "Çaji është i ngrohtë"},
		{Prompt: "shtëpi"},
	}, time.Unix(0, 0))

	assert.True(t, snap.Contains("shtëpi"))
	assert.True(t, snap.Contains("çaji"))
	assert.True(t, snap.Contains("unë"))
	assert.False(t, snap.Contains("i"), "single letters are skipped")
	assert.False(t, snap.Contains("SHTËPI"))
	assert.Equal(t, 7, snap.Len())

	assert.Equal(t, []string{"shtëpi"}, snap.Bucket('s', 6))
	assert.Equal(t, []string{"shkoj"}, snap.Bucket('s', 5))
	assert.Equal(t, []string{"çaji"}, snap.Bucket('ç', 4))
	assert.Nil(t, snap.Bucket('x', 3))
}

func TestBucketsAreSorted(t *testing.T) {
	snap := FromWords([]string{"mira", "mire", "mirë", "mika"}, time.Now())
	assert.Equal(t, []string{"mika", "mira", "mire", "mirë"}, snap.Bucket('m', 4))
	assert.Equal(t, []string{"mika", "mira", "mire", "mirë"}, snap.Words())
}

func TestCacheHitWithinTTL(t *testing.T) {
	src := &countingSource{texts: []ExerciseText{{Prompt: "mirë dita"}}}
	cache := NewCache(src, 300*time.Second)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	first, err := cache.GetOrRebuild(context.Background(), t0)
	require.NoError(t, err)
	second, err := cache.GetOrRebuild(context.Background(), t0.Add(299*time.Second))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCacheRebuildsAfterTTL(t *testing.T) {
	src := &countingSource{texts: []ExerciseText{{Prompt: "mirë"}}}
	cache := NewCache(src, 300*time.Second)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	first, err := cache.GetOrRebuild(context.Background(), t0)
	require.NoError(t, err)

	src.texts = []ExerciseText{{Prompt: "mirë dita"}}
	second, err := cache.GetOrRebuild(context.Background(), t0.Add(300*time.Second))
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), src.calls.Load())
	assert.True(t, second.Contains("dita"))
	assert.False(t, first.Contains("dita"), "old snapshot is never mutated")
}

func TestCacheUsesInjectedClock(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	src := &countingSource{texts: []ExerciseText{{Prompt: "mirë"}}}
	cache := NewCache(src, time.Minute, WithClock(func() time.Time { return now }))

	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())

	now = now.Add(2 * time.Minute)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())

	cache.Invalidate()
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestCacheServesStaleSnapshotOnFailure(t *testing.T) {
	src := &countingSource{texts: []ExerciseText{{Prompt: "mirë"}}}
	cache := NewCache(src, time.Minute)
	t0 := time.Now()

	first, err := cache.GetOrRebuild(context.Background(), t0)
	require.NoError(t, err)

	src.err = errors.New("connection refused")
	stale, err := cache.GetOrRebuild(context.Background(), t0.Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorLexiconUnavailable, apperrors.CodeOf(err))
	assert.Same(t, first, stale)
}

func TestCacheReturnsEmptySnapshotWithoutHistory(t *testing.T) {
	src := &countingSource{err: errors.New("no database")}
	cache := NewCache(src, time.Minute)

	snap, err := cache.GetOrRebuild(context.Background(), time.Now())
	require.Error(t, err)
	require.NotNil(t, snap)
	assert.Zero(t, snap.Len())
}

func TestCacheConcurrentReaders(t *testing.T) {
	src := &countingSource{texts: []ExerciseText{{Prompt: "mirë dita shtëpi"}}}
	cache := NewCache(src, time.Hour)
	now := time.Now()
	_, err := cache.GetOrRebuild(context.Background(), now)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := cache.GetOrRebuild(context.Background(), now.Add(time.Minute))
			assert.NoError(t, err)
			assert.True(t, snap.Contains("shtëpi"))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), src.calls.Load())
}
