package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetExpire(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, ListingKey("1"), []byte("one"), time.Minute))
	got, err := c.Get(ctx, ListingKey("1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, ListingKey("1"))
	assert.ErrorIs(t, err, ErrCacheMiss)

	c.removeExpired()
	assert.Zero(t, c.Len())
}

func TestMemoryCache_GetOrSet(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	calls := 0
	load := func() ([]byte, error) {
		calls++
		return []byte("v"), nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrSet(ctx, "k", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), v)
	}
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err := c.GetOrSet(ctx, "other", time.Minute, func() ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	_, err = c.Get(ctx, "other")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute)
	_ = c.Set(ctx, "b", []byte("2"), time.Minute)
	_ = c.Set(ctx, "c", []byte("3"), time.Minute)

	require.NoError(t, c.Delete(ctx, "a", "b", "missing"))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, c.Len())

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestMemoryCache_GetOrSet_CollapsesConcurrentMisses(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func() ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("v"), nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrSet(ctx, "k", time.Minute, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, []byte("v"), v)
	}
	results[0][0] = 'x'
	assert.Equal(t, []byte("v"), results[1], "callers get independent copies")
}
