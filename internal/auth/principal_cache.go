package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-booking/internal/models"
)

const principalKeyPrefix = "principal:"

// PrincipalCache keeps recently resolved principals in Redis so a guarded
// request usually costs no storage read. Entries expire after TTL; user
// deletion invalidates eagerly.
type PrincipalCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewPrincipalCache(client *redis.Client, ttl time.Duration) *PrincipalCache {
	return &PrincipalCache{Client: client, TTL: ttl}
}

func (c *PrincipalCache) Get(ctx context.Context, userID string) (*models.User, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	payload, err := c.Client.Get(ctx, principalKeyPrefix+userID).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get principal from redis: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(payload), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached principal: %w", err)
	}
	return &user, nil
}

func (c *PrincipalCache) Set(ctx context.Context, user *models.User) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal principal: %w", err)
	}
	return c.Client.Set(ctx, principalKeyPrefix+user.UserID, payload, c.TTL).Err()
}

// Invalidate drops a cached principal. Called when the account is deleted so
// revocation-by-deletion takes effect immediately rather than at TTL expiry.
func (c *PrincipalCache) Invalidate(ctx context.Context, userID string) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return c.Client.Del(ctx, principalKeyPrefix+userID).Err()
}
