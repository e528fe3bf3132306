package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	apperrors "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/errors"
)

const (
	idempotencyKeyPrefix = "idempotency:order:"
	pendingMarker        = "pending"
)

// IdempotencyStore implements repository.IdempotencyStore using Redis.
// A key holds "pending" while its request runs and the placed order as
// JSON once it completes.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore creates a Redis-backed idempotency store whose keys
// expire after ttl.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(userID, key string) string {
	return idempotencyKeyPrefix + userID + ":" + key
}

// Reserve claims the key with SETNX.
func (s *IdempotencyStore) Reserve(ctx context.Context, userID, key string) (*domain.Order, error) {
	k := idempotencyKey(userID, key)

	acquired, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis reserve idempotency key: %w", err)
	}
	if acquired {
		return nil, nil
	}

	val, err := s.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET; the client may retry.
			return nil, apperrors.Conflict("idempotency key expired during request, retry")
		}
		return nil, fmt.Errorf("redis get idempotency key: %w", err)
	}

	if string(val) == pendingMarker {
		return nil, apperrors.Conflict("a request with this idempotency key is still in progress")
	}

	var order domain.Order
	if err := json.Unmarshal(val, &order); err != nil {
		return nil, fmt.Errorf("unmarshal idempotent order: %w", err)
	}
	return &order, nil
}

// Complete replaces the pending marker with the placed order.
func (s *IdempotencyStore) Complete(ctx context.Context, userID, key string, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal idempotent order: %w", err)
	}
	if err := s.client.Set(ctx, idempotencyKey(userID, key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis complete idempotency key: %w", err)
	}
	return nil
}

// Release deletes the key so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, userID, key string) error {
	if err := s.client.Del(ctx, idempotencyKey(userID, key)).Err(); err != nil {
		return fmt.Errorf("redis release idempotency key: %w", err)
	}
	return nil
}
