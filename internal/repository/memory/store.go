// Package memory provides in-memory repositories that back the service and
// HTTP handler tests. Transactions are emulated by holding the store lock
// for the whole callback and restoring a snapshot on failure.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/repository"
	apperrors "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/errors"
)

// FailFunc lets tests inject an error for a named operation, e.g.
// "sellers.AddSales". Returning nil lets the operation run.
type FailFunc func(op, id string) error

type state struct {
	products map[string]domain.Product
	sellers  map[string]domain.Seller
	reviews  []domain.Review
	orders   []domain.Order
}

func (s *state) clone() *state {
	c := &state{
		products: make(map[string]domain.Product, len(s.products)),
		sellers:  make(map[string]domain.Seller, len(s.sellers)),
		reviews:  slices.Clone(s.reviews),
		orders:   slices.Clone(s.orders),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.sellers {
		c.sellers[k] = v
	}
	return c
}

type db struct {
	mu        sync.Mutex
	data      *state
	fail      FailFunc
	commitErr error
}

// Store implements repository.Store in memory.
type Store struct {
	db   *db
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{db: &db{data: &state{
		products: make(map[string]domain.Product),
		sellers:  make(map[string]domain.Seller),
	}}}
}

func (s *Store) lock() {
	if !s.inTx {
		s.db.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx {
		s.db.mu.Unlock()
	}
}

func (s *Store) check(op, id string) error {
	if s.db.fail == nil {
		return nil
	}
	return s.db.fail(op, id)
}

// FailOn installs an error injection hook.
func (s *Store) FailOn(fn FailFunc) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.fail = fn
}

// SetCommitError makes every top-level WithinTx fail at commit with err
// after fn succeeded. Pass nil to clear.
func (s *Store) SetCommitError(err error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.commitErr = err
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p domain.Product) {
	s.lock()
	defer s.unlock()
	s.db.data.products[p.ID] = p
}

// PutSeller inserts or replaces a seller.
func (s *Store) PutSeller(sl domain.Seller) {
	s.lock()
	defer s.unlock()
	s.db.data.sellers[sl.ID] = sl
}

// DeleteProduct removes a product, leaving reviews and orders that
// reference it in place.
func (s *Store) DeleteProduct(id string) {
	s.lock()
	defer s.unlock()
	delete(s.db.data.products, id)
}

// Product returns a copy of the stored product.
func (s *Store) Product(id string) (domain.Product, bool) {
	s.lock()
	defer s.unlock()
	p, ok := s.db.data.products[id]
	return p, ok
}

// Seller returns a copy of the stored seller.
func (s *Store) Seller(id string) (domain.Seller, bool) {
	s.lock()
	defer s.unlock()
	sl, ok := s.db.data.sellers[id]
	return sl, ok
}

// AllReviews returns every stored review row, superseded rows included.
func (s *Store) AllReviews() []domain.Review {
	s.lock()
	defer s.unlock()
	return slices.Clone(s.db.data.reviews)
}

// AllOrders returns every stored order in insertion order.
func (s *Store) AllOrders() []domain.Order {
	s.lock()
	defer s.unlock()
	return slices.Clone(s.db.data.orders)
}

func (s *Store) Products() repository.ProductRepository { return productRepo{s} }
func (s *Store) Sellers() repository.SellerRepository   { return sellerRepo{s} }
func (s *Store) Reviews() repository.ReviewRepository   { return reviewRepo{s} }
func (s *Store) Orders() repository.OrderRepository     { return orderRepo{s} }

// WithinTx runs fn while holding the store lock. On error the state from
// before fn is restored.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if !s.inTx {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.db.data.clone()
	err := fn(&Store{db: s.db, inTx: true})
	if err == nil && !s.inTx {
		err = s.db.commitErr
	}
	if err != nil {
		s.db.data = snapshot
		return err
	}
	return nil
}

type productRepo struct{ s *Store }

func (r productRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("products.GetByID", id); err != nil {
		return nil, err
	}
	p, ok := r.s.db.data.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (r productRepo) LockByID(_ context.Context, id string) error {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("products.LockByID", id); err != nil {
		return err
	}
	if _, ok := r.s.db.data.products[id]; !ok {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r productRepo) DecrementStock(_ context.Context, id string, qty int) (domain.StockChange, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("products.DecrementStock", id); err != nil {
		return domain.StockChange{}, err
	}
	p, ok := r.s.db.data.products[id]
	if !ok {
		return domain.StockChange{}, apperrors.ErrNotFound
	}
	p.Stock = max(p.Stock-qty, 0)
	r.s.db.data.products[id] = p
	return domain.StockChange{ProductID: id, SellerID: p.SellerID, Stock: p.Stock}, nil
}

func (r productRepo) SetRating(_ context.Context, id string, rating float64) error {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("products.SetRating", id); err != nil {
		return err
	}
	p, ok := r.s.db.data.products[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.Rating = rating
	r.s.db.data.products[id] = p
	return nil
}

func (r productRepo) MissingIDs(_ context.Context, ids []string) ([]string, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("products.MissingIDs", ""); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var missing []string
	for _, id := range ids {
		if _, ok := r.s.db.data.products[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	return missing, nil
}

type sellerRepo struct{ s *Store }

func (r sellerRepo) GetByID(_ context.Context, id string) (*domain.Seller, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("sellers.GetByID", id); err != nil {
		return nil, err
	}
	sl, ok := r.s.db.data.sellers[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &sl, nil
}

func (r sellerRepo) AddSales(_ context.Context, id string, amount float64) error {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("sellers.AddSales", id); err != nil {
		return err
	}
	sl, ok := r.s.db.data.sellers[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	sl.TotalSales += amount
	r.s.db.data.sellers[id] = sl
	return nil
}

type reviewRepo struct{ s *Store }

func (r reviewRepo) FindLatest(_ context.Context, productID, customerID string) (*domain.Review, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("reviews.FindLatest", productID); err != nil {
		return nil, err
	}
	var latest *domain.Review
	for i := range r.s.db.data.reviews {
		rv := r.s.db.data.reviews[i]
		if rv.ProductID != productID || rv.CustomerID != customerID {
			continue
		}
		if latest == nil || rv.Date.After(latest.Date) {
			latest = &rv
		}
	}
	if latest == nil {
		return nil, apperrors.ErrNotFound
	}
	return latest, nil
}

func (r reviewRepo) Create(_ context.Context, review *domain.Review) error {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("reviews.Create", review.ProductID); err != nil {
		return err
	}
	r.s.db.data.reviews = append(r.s.db.data.reviews, *review)
	return nil
}

func (r reviewRepo) Update(_ context.Context, review *domain.Review) error {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("reviews.Update", review.ProductID); err != nil {
		return err
	}
	for i := range r.s.db.data.reviews {
		if r.s.db.data.reviews[i].ID == review.ID {
			r.s.db.data.reviews[i] = *review
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r reviewRepo) ListByProduct(_ context.Context, productID string) ([]domain.Review, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("reviews.ListByProduct", productID); err != nil {
		return nil, err
	}
	out := []domain.Review{}
	for _, rv := range r.s.db.data.reviews {
		if rv.ProductID == productID {
			out = append(out, rv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) Create(_ context.Context, o *domain.Order) error {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("orders.Create", o.ID); err != nil {
		return err
	}
	stored := *o
	stored.Items = slices.Clone(o.Items)
	r.s.db.data.orders = append(r.s.db.data.orders, stored)
	return nil
}

func (r orderRepo) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	r.s.lock()
	defer r.s.unlock()
	if err := r.s.check("orders.ListByCustomer", customerID); err != nil {
		return nil, err
	}
	out := []domain.Order{}
	for _, o := range r.s.db.data.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
