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

// ReviewRepository implements review persistence operations using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

const reviewColumns = `id, product_id, customer_id, customer_name, rating, comment, date`

func scanReview(row pgx.Row, rv *domain.Review) error {
	return row.Scan(
		&rv.ID,
		&rv.ProductID,
		&rv.CustomerID,
		&rv.CustomerName,
		&rv.Rating,
		&rv.Comment,
		&rv.Date,
	)
}

// FindLatest returns the customer's newest review row for the product.
func (r *ReviewRepository) FindLatest(ctx context.Context, productID, customerID string) (_ *domain.Review, err error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE product_id = $1 AND customer_id = $2
		ORDER BY date DESC
		LIMIT 1`

	ctx, end := database.TraceQuery(ctx, "reviews.FindLatest", query)
	defer func() { end(err) }()

	var rv domain.Review
	if err = scanReview(r.pool.QueryRow(ctx, query, productID, customerID), &rv); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find latest review: %w", err)
	}
	return &rv, nil
}

// Create inserts a new review row.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ctx, end := database.TraceQuery(ctx, "reviews.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		review.ID,
		review.ProductID,
		review.CustomerID,
		review.CustomerName,
		review.Rating,
		review.Comment,
		review.Date,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an existing review row.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) (err error) {
	query := `
		UPDATE reviews
		SET customer_name = $2, rating = $3, comment = $4, date = $5
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "reviews.Update", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query,
		review.ID,
		review.CustomerName,
		review.Rating,
		review.Comment,
		review.Date,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListByProduct returns all review rows for a product, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) (_ []domain.Review, err error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE product_id = $1
		ORDER BY date DESC`

	ctx, end := database.TraceQuery(ctx, "reviews.ListByProduct", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err = scanReview(rows, &rv); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}
