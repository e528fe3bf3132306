package postgres

import (
	"context"
	"fmt"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/database"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a new order and its items atomically within a transaction.
// When the repository is already bound to a transaction this opens a
// savepoint instead.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	orderQuery := `
		INSERT INTO orders (id, customer_id, customer_name, total, status, date, shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ctx, end := database.TraceQuery(ctx, "orders.Create", orderQuery)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var shipping []byte
	if len(o.ShippingAddress) > 0 {
		shipping = o.ShippingAddress
	}

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.CustomerID,
		o.CustomerName,
		o.Total,
		o.Status,
		o.Date,
		shipping,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, position, product_id, product_name, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for i, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			o.ID,
			i,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ListByCustomer returns the customer's orders newest first. Items are
// loaded with one batched query instead of one query per order.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) (_ []domain.Order, err error) {
	query := `
		SELECT id, customer_id, customer_name, total, status, date, shipping_address
		FROM orders
		WHERE customer_id = $1
		ORDER BY date DESC`

	ctx, end := database.TraceQuery(ctx, "orders.ListByCustomer", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	index := make(map[string]int)
	var ids []string
	for rows.Next() {
		var (
			o        domain.Order
			shipping []byte
		)
		if err = rows.Scan(&o.ID, &o.CustomerID, &o.CustomerName, &o.Total, &o.Status, &o.Date, &shipping); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		if len(shipping) > 0 {
			o.ShippingAddress = shipping
		}
		o.Items = []domain.OrderItem{}
		index[o.ID] = len(orders)
		ids = append(ids, o.ID)
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return orders, nil
	}

	if err = r.loadItems(ctx, ids, orders, index); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, ids []string, orders []domain.Order, index map[string]int) error {
	query := `
		SELECT order_id, product_id, product_name, quantity, price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("scan order item row: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order item rows: %w", err)
	}
	return nil
}
