package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/repository"
	apperrors "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/errors"
)

// CartRepository implements repository.CartRepository in memory with the
// same versioning rules as the Redis implementation.
type CartRepository struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
	fail  FailFunc
}

var _ repository.CartRepository = (*CartRepository)(nil)

// NewCartRepository returns an empty cart repository.
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]domain.Cart)}
}

// FailOn installs an error injection hook for operations named
// "carts.<Method>".
func (r *CartRepository) FailOn(fn FailFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fn
}

func (r *CartRepository) check(op, id string) error {
	if r.fail == nil {
		return nil
	}
	return r.fail(op, id)
}

func cloneCart(c domain.Cart) *domain.Cart {
	c.Items = slices.Clone(c.Items)
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	return &c
}

func (r *CartRepository) Get(_ context.Context, userID string) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("carts.Get", userID); err != nil {
		return nil, err
	}
	c, ok := r.carts[userID]
	if !ok {
		return nil, apperrors.NotFound("cart", userID)
	}
	return cloneCart(c), nil
}

func (r *CartRepository) Save(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("carts.Save", cart.UserID); err != nil {
		return err
	}
	cart.Version++
	cart.UpdatedAt = time.Now().UTC()
	r.carts[cart.UserID] = *cloneCart(*cart)
	return nil
}

func (r *CartRepository) SaveIfVersion(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("carts.SaveIfVersion", cart.UserID); err != nil {
		return err
	}
	if r.carts[cart.UserID].Version != cart.Version {
		return apperrors.ErrConflict
	}
	cart.Version++
	cart.UpdatedAt = time.Now().UTC()
	r.carts[cart.UserID] = *cloneCart(*cart)
	return nil
}

func (r *CartRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("carts.Delete", userID); err != nil {
		return err
	}
	delete(r.carts, userID)
	return nil
}
