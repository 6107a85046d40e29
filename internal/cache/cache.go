package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores JSON-encodable values under string keys.
type Cache interface {
	GetAndParse(ctx context.Context, key string, dst any) error
	SetExp(ctx context.Context, key string, value any, exp time.Duration) error
	Ping(ctx context.Context) error
}
