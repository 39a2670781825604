package embed

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yakgwan-ai/yakgwan/internal/cache"
)

// DefaultLocalCacheSize bounds the in-process embedding cache.
// At 1536 dims * 4 bytes * 1000 entries that is about 6MB.
const DefaultLocalCacheSize = 1000

// CachedEmbedder layers two caches over an Embedder: an in-process LRU for
// hot queries and the shared cache facade (Redis or memory) for reuse
// across processes. Zero vectors are never cached.
type CachedEmbedder struct {
	inner  Embedder
	local  *lru.Cache[string, []float32]
	shared cache.Cache
	ttl    time.Duration
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner. shared may be nil to cache in-process only.
func NewCachedEmbedder(inner Embedder, shared cache.Cache, localSize int, ttl time.Duration) *CachedEmbedder {
	if localSize <= 0 {
		localSize = DefaultLocalCacheSize
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	local, _ := lru.New[string, []float32](localSize)
	return &CachedEmbedder{inner: inner, local: local, shared: shared, ttl: ttl}
}

// cacheKey is MD5 over "model:text", matching the keys written at
// ingestion time so query and chunk embeddings share one namespace.
func (c *CachedEmbedder) cacheKey(text string) string {
	sum := md5.Sum([]byte(c.inner.ModelName() + ":" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}

// Embed returns the cached embedding if available, otherwise computes and
// caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if vec, ok := c.local.Get(key); ok {
		return vec, nil
	}
	if vec, ok := c.sharedGet(ctx, key); ok {
		c.local.Add(key, vec)
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, vec)
	return vec, nil
}

// EmbedBatch checks each text against both cache layers and only embeds
// the misses, preserving input order.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	missIndices := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		key := c.cacheKey(text)
		if vec, ok := c.local.Get(key); ok {
			results[i] = vec
			continue
		}
		if vec, ok := c.sharedGet(ctx, key); ok {
			c.local.Add(key, vec)
			results[i] = vec
			continue
		}
		missIndices = append(missIndices, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIndices {
		results[idx] = fresh[j]
		c.store(ctx, c.cacheKey(texts[idx]), fresh[j])
	}

	return results, nil
}

func (c *CachedEmbedder) sharedGet(ctx context.Context, key string) ([]float32, bool) {
	if c.shared == nil {
		return nil, false
	}
	var vec []float32
	if !c.shared.GetJSON(ctx, key, &vec) {
		return nil, false
	}
	if len(vec) != c.inner.Dimensions() {
		c.shared.Delete(ctx, key)
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	if IsZeroVector(vec) {
		return
	}
	c.local.Add(key, vec)
	if c.shared != nil {
		c.shared.SetJSON(ctx, key, vec, c.ttl)
	}
}

func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

func (c *CachedEmbedder) Close() error { return c.inner.Close() }
