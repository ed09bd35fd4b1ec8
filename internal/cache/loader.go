package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Loader fills a cache on miss, collapsing concurrent loads of the same key
// into one call.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
}

func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Get returns the cached value for key or calls load and caches its result.
// Failed loads are not cached. hit reports whether the value came from the cache.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (value T, hit bool, err error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}
	res, err, _ := l.group.Do(key, func() (any, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		l.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return res.(T), false, nil
}

// Purge drops every cached value.
func (l *Loader[T]) Purge() {
	l.cache.Purge()
}
