// Package cache provides a small facade over Redis with an in-process
// LRU fallback. Callers never see which backend is active; a missing or
// unreachable Redis simply degrades to process-local caching.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Cache is the backend-agnostic key/value interface. Values are opaque
// strings; callers serialize as needed.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores value under key for ttl. A zero ttl uses the backend's
	// default expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration)

	// Delete removes a key. Missing keys are not an error.
	Delete(ctx context.Context, key string)

	// GetJSON reads key and unmarshals the stored JSON into v. Returns
	// false on a miss or when the stored value does not parse.
	GetJSON(ctx context.Context, key string, v any) bool

	// SetJSON marshals v and stores it under key for ttl. A value that
	// fails to marshal is silently dropped; caching never fails a
	// request.
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration)

	// ClearPattern removes every key with the given prefix.
	ClearPattern(ctx context.Context, prefix string)

	// Backend names the active backend ("redis" or "memory").
	Backend() string

	Close()
}

// Config selects and tunes the backend.
type Config struct {
	// RedisAddr enables the Redis backend when non-empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// DefaultTTL applies when Set is called with zero ttl.
	DefaultTTL time.Duration

	// MemoryMaxEntries caps the in-process LRU (default 10000).
	MemoryMaxEntries int
}

// New picks the backend: Redis when configured and reachable, otherwise
// the in-process LRU. Redis ping failure is logged, not fatal.
func New(ctx context.Context, cfg Config, logger *slog.Logger) Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}

	if cfg.RedisAddr != "" {
		rc, err := newRedisCache(ctx, cfg)
		if err == nil {
			logger.Info("cache backend selected", "backend", "redis", "addr", cfg.RedisAddr)
			return rc
		}
		logger.Warn("redis unreachable, falling back to memory cache", "addr", cfg.RedisAddr, "error", err)
	}

	logger.Info("cache backend selected", "backend", "memory")
	return newMemoryCache(cfg)
}

// jsonGet implements GetJSON on top of a backend's Get.
func jsonGet(ctx context.Context, c Cache, key string, v any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

// jsonSet implements SetJSON on top of a backend's Set.
func jsonSet(ctx context.Context, c Cache, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, string(data), ttl)
}
