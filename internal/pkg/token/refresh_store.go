package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshKeyPrefix = "refresh_token:"

// RefreshStore persists the single current refresh token per user with
// expiry. Put overwrites; at most one refresh session per user exists.
type RefreshStore interface {
	Put(userID uint, refreshToken string, ttl time.Duration) error
	// Get returns the stored token or ErrSessionNotFound.
	Get(userID uint) (string, error)
	Delete(userID uint) error
}

// redisRefreshStore keeps refresh sessions in Redis, delegating TTL expiry
// to the store.
type redisRefreshStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisRefreshStore creates a RefreshStore backed by the given client.
func NewRedisRefreshStore(client *redis.Client) RefreshStore {
	return &redisRefreshStore{client: client, ctx: context.Background()}
}

func refreshKey(userID uint) string {
	return fmt.Sprintf("%s%d", refreshKeyPrefix, userID)
}

func (s *redisRefreshStore) Put(userID uint, refreshToken string, ttl time.Duration) error {
	return s.client.Set(s.ctx, refreshKey(userID), refreshToken, ttl).Err()
}

func (s *redisRefreshStore) Get(userID uint) (string, error) {
	val, err := s.client.Get(s.ctx, refreshKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get refresh session: %w", err)
	}
	return val, nil
}

func (s *redisRefreshStore) Delete(userID uint) error {
	return s.client.Del(s.ctx, refreshKey(userID)).Err()
}
