package repository

import (
	"context"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
)

// ProductRepository persists products. Stock and rating are only changed
// through the dedicated atomic methods.
type ProductRepository interface {
	// GetByID returns the product or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// LockByID takes a row lock on the product for the rest of the
	// transaction. It returns apperrors.ErrNotFound if the product is gone.
	LockByID(ctx context.Context, id string) error

	// DecrementStock atomically lowers stock by qty, flooring at zero.
	DecrementStock(ctx context.Context, id string, qty int) (domain.StockChange, error)

	// SetRating stores a recomputed rating.
	SetRating(ctx context.Context, id string, rating float64) error

	// MissingIDs returns the subset of ids with no product row, in input order.
	MissingIDs(ctx context.Context, ids []string) ([]string, error)
}

// SellerRepository persists sellers.
type SellerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Seller, error)

	// AddSales atomically adds amount to the seller's total sales.
	AddSales(ctx context.Context, id string, amount float64) error
}

// ReviewRepository persists review rows.
type ReviewRepository interface {
	// FindLatest returns the most recent review by customerID for the
	// product, or apperrors.ErrNotFound.
	FindLatest(ctx context.Context, productID, customerID string) (*domain.Review, error)
	Create(ctx context.Context, review *domain.Review) error
	Update(ctx context.Context, review *domain.Review) error

	// ListByProduct returns every row for the product, newest first,
	// including superseded rows.
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
}

// OrderRepository persists orders with their items.
type OrderRepository interface {
	// Create inserts the order and its items atomically.
	Create(ctx context.Context, order *domain.Order) error

	// ListByCustomer returns the customer's orders, newest first.
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
}

// Store groups the relational repositories so they can share a transaction.
type Store interface {
	Products() ProductRepository
	Sellers() SellerRepository
	Reviews() ReviewRepository
	Orders() OrderRepository

	// WithinTx runs fn against a Store bound to one transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// CartRepository stores carts keyed by user ID.
type CartRepository interface {
	// Get returns the user's cart or apperrors.ErrNotFound.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Save stores cart unconditionally, bumping its version.
	Save(ctx context.Context, cart *domain.Cart) error

	// SaveIfVersion stores cart only if the stored version still equals
	// cart.Version, then bumps it. A mismatch returns apperrors.ErrConflict.
	SaveIfVersion(ctx context.Context, cart *domain.Cart) error

	// Delete removes the cart. Deleting a missing cart is not an error.
	Delete(ctx context.Context, userID string) error
}

// IdempotencyStore remembers the outcome of order placements keyed by a
// client-supplied idempotency key.
type IdempotencyStore interface {
	// Reserve claims key for userID. It returns the stored order when the
	// key already completed, apperrors.ErrConflict while another request
	// holds it, and (nil, nil) when the caller now owns it.
	Reserve(ctx context.Context, userID, key string) (*domain.Order, error)

	// Complete records the order produced under key.
	Complete(ctx context.Context, userID, key string, order *domain.Order) error

	// Release drops a reservation so the client can retry.
	Release(ctx context.Context, userID, key string) error
}
