package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// memoryCache is the in-process fallback backend. Entries expire after
// DefaultTTL; per-call TTLs shorter than the default are handled by
// storing an explicit deadline alongside the value.
type memoryCache struct {
	lru        *expirable.LRU[string, memoryEntry]
	defaultTTL time.Duration
}

type memoryEntry struct {
	value    string
	deadline time.Time
}

func newMemoryCache(cfg Config) *memoryCache {
	maxEntries := cfg.MemoryMaxEntries
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &memoryCache{
		lru:        expirable.NewLRU[string, memoryEntry](maxEntries, nil, cfg.DefaultTTL),
		defaultTTL: cfg.DefaultTTL,
	}
}

func (m *memoryCache) Get(_ context.Context, key string) (string, bool) {
	entry, ok := m.lru.Get(key)
	if !ok {
		return "", false
	}
	if !entry.deadline.IsZero() && time.Now().After(entry.deadline) {
		m.lru.Remove(key)
		return "", false
	}
	return entry.value, true
}

func (m *memoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) {
	entry := memoryEntry{value: value}
	if ttl > 0 && ttl < m.defaultTTL {
		entry.deadline = time.Now().Add(ttl)
	}
	m.lru.Add(key, entry)
}

func (m *memoryCache) Delete(_ context.Context, key string) {
	m.lru.Remove(key)
}

func (m *memoryCache) GetJSON(ctx context.Context, key string, v any) bool {
	return jsonGet(ctx, m, key, v)
}

func (m *memoryCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	jsonSet(ctx, m, key, v, ttl)
}

func (m *memoryCache) ClearPattern(_ context.Context, prefix string) {
	for _, key := range m.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			m.lru.Remove(key)
		}
	}
}

func (m *memoryCache) Backend() string { return "memory" }

func (m *memoryCache) Close() {
	m.lru.Purge()
}
