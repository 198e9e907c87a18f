package cached_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/parley-go-sdk/core"
	"github.com/becomeliminal/parley-go-sdk/memory/embedder/cached"
	"github.com/becomeliminal/parley-go-sdk/memory/embedder/mock"
)

// countingEmbedder counts delegated Embed calls.
type countingEmbedder struct {
	inner core.Embedder
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }

func TestCacheHitsSkipInner(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{inner: mock.New(32)}

	emb, err := cached.New(inner, 0)
	require.NoError(t, err)
	defer emb.Close()

	first, err := emb.Embed(ctx, "hello world")
	require.NoError(t, err)
	emb.Wait()

	second, err := emb.Embed(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
}

func TestDistinctInputsDelegate(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{inner: mock.New(32)}

	emb, err := cached.New(inner, 0)
	require.NoError(t, err)
	defer emb.Close()

	_, err = emb.Embed(ctx, "alpha")
	require.NoError(t, err)
	_, err = emb.Embed(ctx, "beta")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestInnerErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{inner: mock.New(32), err: errors.New("encoder offline")}

	emb, err := cached.New(inner, 0)
	require.NoError(t, err)
	defer emb.Close()

	_, err = emb.Embed(ctx, "hello")
	require.Error(t, err)
	emb.Wait()

	inner.err = nil
	vec, err := emb.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 32)
	assert.Equal(t, 2, inner.calls)
}

func TestDimensionsDelegates(t *testing.T) {
	emb, err := cached.New(mock.New(48), 0)
	require.NoError(t, err)
	defer emb.Close()
	assert.Equal(t, 48, emb.Dimensions())
}
