// Package cached wraps any Embedder with a ristretto cache. Pattern
// triggers and repeated user inputs re-embed constantly during scoring;
// caching keeps the embedding call off the hot path.
package cached

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/becomeliminal/parley-go-sdk/core"
)

// Embedder decorates an inner core.Embedder with an in-process cache keyed
// by the exact input text.
type Embedder struct {
	inner core.Embedder
	cache *ristretto.Cache
}

// New creates a caching embedder. maxBytes bounds the total cached vector
// size; 0 selects a 16 MiB default.
func New(inner core.Embedder, maxBytes int64) (*Embedder, error) {
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 16, // ~10x expected entries
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Embedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector when present, otherwise delegates to the
// inner embedder and caches the result. Callers must not mutate the
// returned slice.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vec, int64(len(vec)*4))
	return vec, nil
}

// Dimensions returns the inner embedder's vector size.
func (e *Embedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Wait blocks until pending cache writes are applied. Only tests need it:
// ristretto admits entries asynchronously.
func (e *Embedder) Wait() {
	e.cache.Wait()
}

// Close releases cache resources.
func (e *Embedder) Close() {
	e.cache.Close()
}
