package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeRegistry reserves session codes across instances with SETNX.
// A reservation outlives its session only until the TTL expires.
type CodeRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCodeRegistry(client *redis.Client, ttl time.Duration) *CodeRegistry {
	return &CodeRegistry{client: client, ttl: ttl}
}

func (r *CodeRegistry) Reserve(ctx context.Context, code string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(code), "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve code %s: %w", code, err)
	}
	return ok, nil
}

func (r *CodeRegistry) Release(ctx context.Context, code string) error {
	if err := r.client.Del(ctx, r.key(code)).Err(); err != nil {
		return fmt.Errorf("release code %s: %w", code, err)
	}
	return nil
}

func (r *CodeRegistry) key(code string) string {
	return "session:code:" + code
}
