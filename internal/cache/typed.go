package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Typed stores JSON-encoded values of T under a key namespace.
type Typed[T any] struct {
	cache     Cache
	namespace string
	ttl       time.Duration
}

// NewTyped creates a Typed cache whose keys are namespace + ":" + key.
func NewTyped[T any](c Cache, namespace string, ttl time.Duration) *Typed[T] {
	return &Typed[T]{cache: c, namespace: namespace + ":", ttl: ttl}
}

// Get returns the cached value and whether it was found.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool) {
	var v T
	data, err := t.cache.Get(ctx, t.namespace+key)
	if err != nil {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

// Set stores v. Encoding or backend errors are returned.
func (t *Typed[T]) Set(ctx context.Context, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return t.cache.Set(ctx, t.namespace+key, data, t.ttl)
}

// GetOrLoad returns the cached value for key or calls load and caches its
// result. A failing cache write only logs; the loaded value is still returned.
func (t *Typed[T]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := t.Get(ctx, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := t.Set(ctx, key, v); err != nil {
		slog.Debug("cache write failed", "key", t.namespace+key, "error", err)
	}
	return v, nil
}

// Invalidate drops every key in the namespace.
func (t *Typed[T]) Invalidate(ctx context.Context) error {
	return t.cache.DeleteByPrefix(ctx, t.namespace)
}
