package similarity

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard prevents concurrent bulk refreshes of the same scope when
// several processes share the database.
type Guard interface {
	// Acquire claims the scope for the ttl. False means another
	// refresh holds it.
	Acquire(ctx context.Context, scope string, ttl time.Duration) (bool, error)
	// Release frees the scope before the ttl runs out.
	Release(ctx context.Context, scope string) error
}

// RedisGuard implements Guard with SET NX marker keys.
type RedisGuard struct {
	client *redis.Client
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func guardKey(scope string) string {
	return "similarity:refresh:" + scope
}

func (g *RedisGuard) Acquire(ctx context.Context, scope string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, guardKey(scope), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire refresh guard: %w", err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, scope string) error {
	if err := g.client.Del(ctx, guardKey(scope)).Err(); err != nil {
		return fmt.Errorf("release refresh guard: %w", err)
	}
	return nil
}

// NoopGuard always grants the scope; single-process deployments and
// tests run without Redis.
type NoopGuard struct{}

func (NoopGuard) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (NoopGuard) Release(context.Context, string) error                        { return nil }
