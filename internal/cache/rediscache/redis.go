package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sonroyaalmerol/frenchfry/internal/cache"
)

var _ cache.Cache = (*RedisCache)(nil)

type RedisCache struct {
	client *redis.Client
	prefix string
}

func CreateCache(opt *redis.Options, prefix string) *RedisCache {
	return &RedisCache{client: redis.NewClient(opt), prefix: prefix}
}

// FromURL builds a cache from a redis:// URL.
func FromURL(rawURL, prefix string) (*RedisCache, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return CreateCache(opt, prefix), nil
}

func (rc *RedisCache) GetAndParse(ctx context.Context, key string, dst any) error {
	res, err := rc.client.Get(ctx, rc.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cache.ErrMiss
		}
		return err
	}

	if len(res) == 0 {
		return fmt.Errorf("redis key (%s)'s value len is 0", key)
	}
	return json.Unmarshal(res, dst)
}

func (rc *RedisCache) SetExp(ctx context.Context, key string, value any, exp time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, rc.prefix+key, data, exp).Err()
}

func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
