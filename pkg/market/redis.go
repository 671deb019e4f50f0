package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chainsafe/advent-agent/pkg/campaign"
)

// RedisCache keeps token lists in Redis so that replicas share one
// rate-limited market lookup.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache backed by client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached list for key.
func (r *RedisCache) Get(ctx context.Context, key string) ([]campaign.Token, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var tokens []campaign.Token
	if err := json.Unmarshal(val, &tokens); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return tokens, true, nil
}

// Set stores tokens under key for ttl.
func (r *RedisCache) Set(ctx context.Context, key string, tokens []campaign.Token, ttl time.Duration) error {
	val, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}
	return r.client.Set(ctx, key, val, ttl).Err()
}
