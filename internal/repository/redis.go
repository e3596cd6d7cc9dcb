package repository

import (
	"context"
	"fmt"
	"time"

	"lendit/internal/config"

	"github.com/redis/go-redis/v9"
)

// completedTTL bounds cache growth; a completed rental never un-completes,
// so expiry only costs a re-read from the store.
const completedTTL = 24 * time.Hour

// RedisEligibilityCache caches positive completed-rental answers and counts
// per-user request rates.
type RedisEligibilityCache struct {
	client *redis.Client
}

// NewRedisClient builds a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisEligibilityCache(client *redis.Client) *RedisEligibilityCache {
	return &RedisEligibilityCache{client: client}
}

func completedKey(userID, itemID int64) string {
	return fmt.Sprintf("completed_rental:%d:%d", userID, itemID)
}

func (r *RedisEligibilityCache) GetCompletedRental(ctx context.Context, userID, itemID int64) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	_, err := r.client.Get(ctx, completedKey(userID, itemID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get completed rental from redis: %w", err)
	}
	return true, nil
}

func (r *RedisEligibilityCache) SetCompletedRental(ctx context.Context, userID, itemID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, completedKey(userID, itemID), "1", completedTTL).Err(); err != nil {
		return fmt.Errorf("failed to set completed rental in redis: %w", err)
	}
	return nil
}

func (r *RedisEligibilityCache) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("rate_limit:%d", userID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}
