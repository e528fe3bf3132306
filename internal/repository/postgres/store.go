package postgres

import (
	"context"
	"fmt"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/repository"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/database"
)

// Store implements repository.Store on top of a pool or a transaction.
type Store struct {
	db       database.DBTX
	products *ProductRepository
	sellers  *SellerRepository
	reviews  *ReviewRepository
	orders   *OrderRepository
}

// NewStore creates a Store whose repositories share db.
func NewStore(db database.DBTX) *Store {
	return &Store{
		db:       db,
		products: NewProductRepository(db),
		sellers:  NewSellerRepository(db),
		reviews:  NewReviewRepository(db),
		orders:   NewOrderRepository(db),
	}
}

func (s *Store) Products() repository.ProductRepository { return s.products }
func (s *Store) Sellers() repository.SellerRepository   { return s.sellers }
func (s *Store) Reviews() repository.ReviewRepository   { return s.reviews }
func (s *Store) Orders() repository.OrderRepository     { return s.orders }

// WithinTx begins a transaction and runs fn with a Store bound to it.
// Nested calls open savepoints.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(NewStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
