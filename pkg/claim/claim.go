// Package claim holds short-lived exclusive claims on a key in redis.
package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func key(scope, name string) string {
	return fmt.Sprintf("claim:%s:%s", scope, name)
}

// Acquire claims name within scope for ttl. It reports false if someone else holds it.
// A nil client always grants the claim.
func Acquire(ctx context.Context, rdb *redis.Client, scope, name string, ttl time.Duration) (bool, error) {
	if rdb == nil {
		return true, nil
	}

	wasSet, err := rdb.SetNX(ctx, key(scope, name), "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire claim in redis: %w", err)
	}

	return wasSet, nil
}

// TTL returns how long the claim on name has left.
func TTL(ctx context.Context, rdb *redis.Client, scope, name string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	return rdb.TTL(ctx, key(scope, name)).Result()
}

// Release drops the claim on name.
func Release(ctx context.Context, rdb *redis.Client, scope, name string) error {
	if rdb == nil {
		return nil
	}
	_, err := rdb.Del(ctx, key(scope, name)).Result()
	return err
}
