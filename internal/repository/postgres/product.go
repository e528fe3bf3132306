package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/database"
	apperrors "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	query := `
		SELECT id, name, price, category, COALESCE(seller_id, ''), stock, rating, description, image
		FROM products
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products.GetByID", query)
	defer func() { end(err) }()

	var p domain.Product
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.Category,
		&p.SellerID,
		&p.Stock,
		&p.Rating,
		&p.Description,
		&p.Image,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	return &p, nil
}

// LockByID takes a FOR UPDATE lock on the product row.
func (r *ProductRepository) LockByID(ctx context.Context, id string) (err error) {
	query := `SELECT id FROM products WHERE id = $1 FOR UPDATE`

	ctx, end := database.TraceQuery(ctx, "products.LockByID", query)
	defer func() { end(err) }()

	var locked string
	if err = r.pool.QueryRow(ctx, query, id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("lock product: %w", err)
	}
	return nil
}

// DecrementStock lowers stock by qty in a single statement. Stock never
// drops below zero.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) (_ domain.StockChange, err error) {
	query := `
		UPDATE products
		SET stock = GREATEST(stock - $2, 0)
		WHERE id = $1
		RETURNING COALESCE(seller_id, ''), stock`

	ctx, end := database.TraceQuery(ctx, "products.DecrementStock", query)
	defer func() { end(err) }()

	change := domain.StockChange{ProductID: id}
	if err = r.pool.QueryRow(ctx, query, id, qty).Scan(&change.SellerID, &change.Stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StockChange{}, apperrors.ErrNotFound
		}
		return domain.StockChange{}, fmt.Errorf("decrement stock: %w", err)
	}

	return change, nil
}

// SetRating stores the product's recomputed rating.
func (r *ProductRepository) SetRating(ctx context.Context, id string, rating float64) (err error) {
	query := `UPDATE products SET rating = $2 WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products.SetRating", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id, rating)
	if err != nil {
		return fmt.Errorf("set product rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MissingIDs returns the ids that have no product row. Duplicates are
// reported once, in first-seen order.
func (r *ProductRepository) MissingIDs(ctx context.Context, ids []string) (_ []string, err error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id FROM products WHERE id = ANY($1)`

	ctx, end := database.TraceQuery(ctx, "products.MissingIDs", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query product ids: %w", err)
	}
	defer rows.Close()

	found := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		found[id] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product ids: %w", err)
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		found[id] = struct{}{}
		missing = append(missing, id)
	}
	return missing, nil
}
