package sheetdb

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func countingLoader(n *int32, rows int, err error) LoaderFunc {
	return func(ctx context.Context) ([]*Record, error) {
		atomic.AddInt32(n, 1)
		if err != nil {
			return nil, err
		}
		out := make([]*Record, rows)
		for i := range out {
			out[i] = NewRecord(i + 2)
		}
		return out, nil
	}
}

func TestCache_TTL(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(time.Minute, nil)
	cache.now = clock.Now
	ctx := context.Background()

	var loads int32
	for i := 0; i < 3; i++ {
		rows, err := cache.GetOrRefresh(ctx, "tasks", countingLoader(&loads, 2, nil))
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	}
	assert.Equal(t, int32(1), loads, "reads within the TTL hit the cache")

	clock.Advance(59 * time.Second)
	_, _ = cache.GetOrRefresh(ctx, "tasks", countingLoader(&loads, 2, nil))
	assert.Equal(t, int32(1), loads)

	clock.Advance(time.Second)
	assert.False(t, cache.Stats("tasks").Valid, "entry expires exactly at the TTL")
	_, _ = cache.GetOrRefresh(ctx, "tasks", countingLoader(&loads, 2, nil))
	assert.Equal(t, int32(2), loads)
}

func TestCache_StaleFallback(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(time.Minute, nil)
	cache.now = clock.Now
	ctx := context.Background()

	var loads int32
	_, err := cache.GetOrRefresh(ctx, "tasks", countingLoader(&loads, 3, nil))
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	rows, err := cache.GetOrRefresh(ctx, "tasks", countingLoader(&loads, 0, errBackend))
	require.NoError(t, err, "a failed refresh serves the stale rows")
	assert.Len(t, rows, 3)
	assert.Equal(t, int32(2), loads)

	stats := cache.Stats("tasks")
	assert.True(t, stats.Present)
	assert.False(t, stats.Valid)
}

func TestCache_NoEntryPropagatesError(t *testing.T) {
	cache := NewCache(time.Minute, nil)
	var loads int32
	_, err := cache.GetOrRefresh(context.Background(), "tasks", countingLoader(&loads, 0, errBackend))
	assert.ErrorIs(t, err, errBackend)
	assert.False(t, cache.Stats("tasks").Present)
}

func TestCache_Invalidate(t *testing.T) {
	cache := NewCache(time.Minute, nil)
	ctx := context.Background()
	var loads int32

	_, _ = cache.GetOrRefresh(ctx, "tasks", countingLoader(&loads, 1, nil))
	_, _ = cache.GetOrRefresh(ctx, "users", countingLoader(&loads, 1, nil))
	assert.Equal(t, []string{"tasks", "users"}, cache.Tables())

	cache.Invalidate("tasks")
	assert.Equal(t, []string{"users"}, cache.Tables())
	_, _ = cache.GetOrRefresh(ctx, "tasks", countingLoader(&loads, 1, nil))
	assert.Equal(t, int32(3), loads)

	cache.InvalidateAll()
	assert.Empty(t, cache.Tables())
	assert.Equal(t, CacheStats{}, cache.Stats("users"))
}

func TestCache_InvalidateDuringLoad(t *testing.T) {
	cache := NewCache(time.Minute, nil)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cache.GetOrRefresh(ctx, "tasks", func(ctx context.Context) ([]*Record, error) {
			close(started)
			<-release
			return []*Record{NewRecord(2)}, nil
		})
	}()

	<-started
	cache.Invalidate("tasks")
	close(release)
	<-done

	assert.False(t, cache.Stats("tasks").Present, "rows loaded before a write are not stored")
}

func TestCache_InvalidateAllDuringFirstLoad(t *testing.T) {
	cache := NewCache(time.Minute, nil)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cache.Refresh(ctx, "users", func(ctx context.Context) ([]*Record, error) {
			return nil, nil
		})
		_, _ = cache.GetOrRefresh(ctx, "tasks", func(ctx context.Context) ([]*Record, error) {
			close(started)
			<-release
			return []*Record{NewRecord(2)}, nil
		})
	}()

	<-started
	cache.InvalidateAll()
	close(release)
	<-done

	assert.False(t, cache.Stats("tasks").Present, "a load that began before InvalidateAll is not stored")
	assert.False(t, cache.Stats("users").Present)

	rows, err := cache.GetOrRefresh(ctx, "tasks", func(ctx context.Context) ([]*Record, error) {
		return []*Record{NewRecord(2), NewRecord(3)}, nil
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, cache.Stats("tasks").Rows)
}

func TestCache_CoalescesConcurrentLoads(t *testing.T) {
	cache := NewCache(time.Minute, nil)
	ctx := context.Background()

	var loads int32
	release := make(chan struct{})
	loader := func(ctx context.Context) ([]*Record, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return []*Record{NewRecord(2)}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := cache.GetOrRefresh(ctx, "tasks", loader)
			assert.NoError(t, err)
			assert.Len(t, rows, 1)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}
