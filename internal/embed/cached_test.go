package embed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yakgwan-ai/yakgwan/internal/cache"
)

// fakeEmbedder counts calls and returns deterministic vectors.
type fakeEmbedder struct {
	calls      int
	batchCalls int
	dims       int
	fail       bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.fail {
		return ZeroVector(f.dims), nil
	}
	vec := make([]float32, f.dims)
	for i := range vec {
		vec[i] = float32(len(text)%7) + 0.5
	}
	return vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := f.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int   { return f.dims }
func (f *fakeEmbedder) ModelName() string { return "fake-embedding" }
func (f *fakeEmbedder) Close() error      { return nil }

func newShared(t *testing.T) cache.Cache {
	t.Helper()
	return cache.New(context.Background(), cache.Config{DefaultTTL: time.Minute}, nil)
}

func TestCachedEmbedder_SecondCallHitsCache(t *testing.T) {
	inner := &fakeEmbedder{dims: 8}
	c := NewCachedEmbedder(inner, newShared(t), 10, time.Minute)
	ctx := context.Background()

	first, err := c.Embed(ctx, "암 진단비")
	require.NoError(t, err)
	second, err := c.Embed(ctx, "암 진단비")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_SharedCacheSurvivesLocalEviction(t *testing.T) {
	inner := &fakeEmbedder{dims: 4}
	shared := newShared(t)
	c := NewCachedEmbedder(inner, shared, 1, time.Minute)
	ctx := context.Background()

	_, err := c.Embed(ctx, "면책기간")
	require.NoError(t, err)
	// Evict from the 1-entry local cache
	_, err = c.Embed(ctx, "보험금 청구")
	require.NoError(t, err)

	callsBefore := inner.calls
	_, err = c.Embed(ctx, "면책기간")
	require.NoError(t, err)

	assert.Equal(t, callsBefore, inner.calls, "shared cache should serve the evicted entry")
}

func TestCachedEmbedder_ZeroVectorNotCached(t *testing.T) {
	inner := &fakeEmbedder{dims: 4, fail: true}
	c := NewCachedEmbedder(inner, newShared(t), 10, time.Minute)
	ctx := context.Background()

	_, err := c.Embed(ctx, "쿼리")
	require.NoError(t, err)
	_, err = c.Embed(ctx, "쿼리")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls, "zero vectors must be recomputed, not cached")
}

func TestCachedEmbedder_BatchMixedHits(t *testing.T) {
	inner := &fakeEmbedder{dims: 4}
	c := NewCachedEmbedder(inner, newShared(t), 10, time.Minute)
	ctx := context.Background()

	_, err := c.Embed(ctx, "암")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(ctx, []string{"암", "진단비", "암"})
	require.NoError(t, err)

	require.Len(t, vecs, 3)
	assert.Equal(t, vecs[0], vecs[2])
	for _, v := range vecs {
		assert.Len(t, v, 4)
	}
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	c := NewCachedEmbedder(&fakeEmbedder{dims: 4}, nil, 10, time.Minute)

	vecs, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestIsZeroVector(t *testing.T) {
	assert.True(t, IsZeroVector(ZeroVector(5)))
	assert.False(t, IsZeroVector([]float32{0, 0.001, 0}))
}
