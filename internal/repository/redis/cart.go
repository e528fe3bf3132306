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

const cartKeyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

func cartKey(userID string) string { return cartKeyPrefix + userID }

// Get retrieves a cart by user ID from Redis.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}
	return decodeCart(data)
}

func decodeCart(data []byte) (*domain.Cart, error) {
	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

// Save persists a cart with the configured TTL regardless of the stored
// version. It is used to restore a snapshot after a failed checkout.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	next := *cart
	next.Version++
	next.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, cartKey(cart.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	*cart = next
	return nil
}

// SaveIfVersion writes the cart under WATCH so a concurrent writer that
// changed the stored version makes this call fail with ErrConflict.
// A missing key counts as version 0.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart) error {
	key := cartKey(cart.UserID)
	next := *cart
	next.Version = cart.Version + 1
	next.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		var stored int64
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get cart: %w", err)
		default:
			current, err := decodeCart(raw)
			if err != nil {
				return err
			}
			stored = current.Version
		}

		if stored != cart.Version {
			return apperrors.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return apperrors.ErrConflict
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		return fmt.Errorf("redis save cart: %w", err)
	}

	*cart = next
	return nil
}

// Delete removes a cart from Redis by user ID.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
