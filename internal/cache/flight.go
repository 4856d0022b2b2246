package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"
)

// readThrough runs the GetOrSet protocol for c. Concurrent misses on one key
// share a single fn call, and every caller gets its own copy of the value.
func readThrough(ctx context.Context, c Cache, group *singleflight.Group, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
	value, err := c.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return nil, err
	}

	shared, err, _ := group.Do(key, func() (interface{}, error) {
		// Another flight may have filled the key since the first lookup.
		if value, err := c.Get(ctx, key); err == nil {
			return value, nil
		}
		value, err := fn()
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, value, ttl); err != nil {
			return nil, err
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}

	src := shared.([]byte)
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}
