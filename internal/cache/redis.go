package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache is the network backend. All errors degrade to cache misses;
// a flaky Redis must never fail a request.
type redisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

func newRedisCache(ctx context.Context, cfg Config) (*redisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &redisCache{client: client, defaultTTL: cfg.DefaultTTL}, nil
}

func (r *redisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (r *redisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	_ = r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, key string) {
	_ = r.client.Del(ctx, key).Err()
}

func (r *redisCache) GetJSON(ctx context.Context, key string, v any) bool {
	return jsonGet(ctx, r, key, v)
}

func (r *redisCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	jsonSet(ctx, r, key, v, ttl)
}

func (r *redisCache) ClearPattern(ctx context.Context, prefix string) {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			_ = r.client.Del(ctx, keys...).Err()
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

func (r *redisCache) Backend() string { return "redis" }

func (r *redisCache) Close() {
	_ = r.client.Close()
}
