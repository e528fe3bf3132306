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

// SellerRepository implements repository.SellerRepository using PostgreSQL.
type SellerRepository struct {
	pool database.DBTX
}

// NewSellerRepository creates a new PostgreSQL-backed seller repository.
func NewSellerRepository(pool database.DBTX) *SellerRepository {
	return &SellerRepository{pool: pool}
}

// GetByID retrieves a seller by its ID.
func (r *SellerRepository) GetByID(ctx context.Context, id string) (_ *domain.Seller, err error) {
	query := `
		SELECT id, name, email, phone, rating, total_sales
		FROM sellers
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "sellers.GetByID", query)
	defer func() { end(err) }()

	var s domain.Seller
	err = r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Rating, &s.TotalSales)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get seller by id: %w", err)
	}
	return &s, nil
}

// AddSales increments total_sales in place so concurrent checkouts never
// overwrite each other.
func (r *SellerRepository) AddSales(ctx context.Context, id string, amount float64) (err error) {
	query := `UPDATE sellers SET total_sales = total_sales + $2 WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "sellers.AddSales", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("add seller sales: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
