package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/event"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/repository"
	apperrors "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/errors"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/logger"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/validator"
)

// CheckoutConfig selects how order placement handles failures.
type CheckoutConfig struct {
	Mode    domain.CheckoutMode
	Policy  domain.MissingReferencePolicy
	Timeout time.Duration
}

// OrderService places orders and lists a customer's order history.
type OrderService struct {
	store       repository.Store
	carts       repository.CartRepository
	idempotency repository.IdempotencyStore
	producer    *event.Producer
	cfg         CheckoutConfig
	logger      *slog.Logger
}

// NewOrderService creates a new order service. idempotency may be nil, in
// which case Idempotency-Key headers are ignored.
func NewOrderService(
	store repository.Store,
	carts repository.CartRepository,
	idempotency repository.IdempotencyStore,
	producer *event.Producer,
	cfg CheckoutConfig,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		store:       store,
		carts:       carts,
		idempotency: idempotency,
		producer:    producer,
		cfg:         cfg,
		logger:      logger,
	}
}

// OrderItemInput is one line of a checkout request. Items without a product
// ID or with a non-positive quantity are kept on the order but skipped for
// stock and revenue. Quantity is capped at the range of order_items.quantity.
type OrderItemInput struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity" validate:"lte=2147483647"`
	Price       float64 `json:"price"`
}

// PlaceOrderInput holds the parameters for placing an order.
type PlaceOrderInput struct {
	Items           []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	Total           *float64         `json:"total"`
	Status          string           `json:"status"`
	Date            *time.Time       `json:"date"`
	ShippingAddress json.RawMessage  `json:"shippingAddress"`
	CustomerName    string           `json:"customerName"`
}

// PlaceOrderResult is the outcome of PlaceOrder. Replayed is set when the
// order was returned from an earlier request with the same idempotency key.
type PlaceOrderResult struct {
	Order    *domain.Order
	Replayed bool
}

// PlaceOrder creates the order, decrements stock, credits sellers and
// deletes the customer's cart.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, input PlaceOrderInput, idempotencyKey string) (*PlaceOrderResult, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}
	order, err := newOrder(userID, input)
	if err != nil {
		return nil, err
	}

	log := logger.FromContextOr(ctx, s.logger)

	useKey := idempotencyKey != "" && s.idempotency != nil
	if useKey {
		prior, err := s.idempotency.Reserve(ctx, userID, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			log.InfoContext(ctx, "replaying idempotent order",
				slog.String("order_id", prior.ID),
				slog.String("idempotency_key", idempotencyKey),
			)
			return &PlaceOrderResult{Order: prior, Replayed: true}, nil
		}
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	skipped, persisted, err := s.place(ctx, order)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	checkoutDuration.WithLabelValues(string(s.cfg.Mode), outcome).Observe(time.Since(start).Seconds())

	if useKey {
		// The key outlives the deadline and follows the order row: once the
		// order exists a retry must replay it rather than place a second one.
		keyCtx := context.WithoutCancel(ctx)
		if persisted {
			if kerr := s.idempotency.Complete(keyCtx, userID, idempotencyKey, order); kerr != nil {
				log.ErrorContext(ctx, "failed to record idempotency key",
					slog.String("order_id", order.ID),
					slog.String("error", kerr.Error()),
				)
			}
		} else if kerr := s.idempotency.Release(keyCtx, userID, idempotencyKey); kerr != nil {
			log.WarnContext(ctx, "failed to release idempotency key", slog.String("error", kerr.Error()))
		}
	}

	if err != nil {
		return nil, err
	}

	ordersPlaced.WithLabelValues(string(s.cfg.Mode)).Inc()
	log.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("customer_id", userID),
		slog.Float64("total", order.Total),
		slog.Int("items", len(order.Items)),
		slog.Int("skipped_items", len(skipped)),
		slog.String("mode", string(s.cfg.Mode)),
	)

	if err := s.producer.PublishOrderPlaced(ctx, order, s.cfg.Mode, skipped); err != nil {
		log.WarnContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	return &PlaceOrderResult{Order: order}, nil
}

func newOrder(userID string, input PlaceOrderInput) (*domain.Order, error) {
	status := input.Status
	if status == "" {
		status = domain.OrderStatusPending
	}
	if !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", status))
	}

	items := make([]domain.OrderItem, len(input.Items))
	for i, in := range input.Items {
		items[i] = domain.OrderItem{
			ProductID:   in.ProductID,
			ProductName: in.ProductName,
			Quantity:    in.Quantity,
			Price:       in.Price,
		}
	}

	total := domain.ItemsTotal(items)
	if input.Total != nil {
		total = *input.Total
	}

	date := time.Now().UTC()
	if input.Date != nil {
		date = input.Date.UTC()
	}

	name := strings.TrimSpace(input.CustomerName)
	if name == "" {
		name = domain.DefaultCustomerName
	}

	var shipping json.RawMessage
	if len(input.ShippingAddress) > 0 && string(input.ShippingAddress) != "null" {
		shipping = input.ShippingAddress
	}

	return &domain.Order{
		ID:              uuid.NewString(),
		CustomerID:      userID,
		CustomerName:    name,
		Items:           items,
		Total:           total,
		Status:          status,
		Date:            date,
		ShippingAddress: shipping,
	}, nil
}

// place runs the workflow in the configured mode. persisted reports whether
// the order row exists afterwards, even when err is non-nil.
func (s *OrderService) place(ctx context.Context, order *domain.Order) (skipped []event.SkippedItem, persisted bool, err error) {
	if s.cfg.Policy == domain.MissingReferenceReject {
		missing, err := s.store.Products().MissingIDs(ctx, referencedProducts(order.Items))
		if err != nil {
			return nil, false, fmt.Errorf("check product references: %w", err)
		}
		if len(missing) > 0 {
			return nil, false, apperrors.MissingReference("product", missing)
		}
	}

	if s.cfg.Mode == domain.CheckoutLenient {
		return s.placeLenient(ctx, order)
	}
	skipped, err = s.placeStrict(ctx, order)
	return skipped, err == nil, err
}

func referencedProducts(items []domain.OrderItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if !it.Skippable() {
			ids = append(ids, it.ProductID)
		}
	}
	return ids
}

// placeLenient performs every step as an independent write. Stock and
// seller failures are tolerated and recorded as gaps, so only the order
// insert and the cart delete fail the request.
func (s *OrderService) placeLenient(ctx context.Context, order *domain.Order) ([]event.SkippedItem, bool, error) {
	if err := s.store.Orders().Create(ctx, order); err != nil {
		return nil, false, fmt.Errorf("create order: %w", err)
	}

	revenue, skipped, err := s.decrementStock(ctx, s.store.Products(), order, true)
	if err != nil {
		return skipped, true, err
	}
	if err := s.creditSellers(ctx, s.store.Sellers(), order, revenue, true); err != nil {
		return skipped, true, err
	}

	if err := s.carts.Delete(ctx, order.CustomerID); err != nil {
		return skipped, true, fmt.Errorf("delete cart: %w", err)
	}
	return skipped, true, nil
}

// placeStrict runs the order insert, stock and seller updates in one
// transaction. Deleting the cart is a saga step inside it: if the commit
// fails afterwards, the cart snapshot is written back.
func (s *OrderService) placeStrict(ctx context.Context, order *domain.Order) ([]event.SkippedItem, error) {
	persist := domain.NewSagaStep(domain.SagaStepPersistOrder)
	clearCart := domain.NewSagaStep(domain.SagaStepClearCart)
	s.logStep(ctx, order.ID, persist)

	var (
		skipped  []event.SkippedItem
		snapshot *domain.Cart
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		revenue, sk, err := s.decrementStock(ctx, tx.Products(), order, false)
		if err != nil {
			return err
		}
		skipped = sk

		if err := s.creditSellers(ctx, tx.Sellers(), order, revenue, false); err != nil {
			return err
		}

		snap, err := s.carts.Get(ctx, order.CustomerID)
		if err != nil && !apperrors.IsNotFound(err) {
			clearCart.Fail(err)
			s.logStep(ctx, order.ID, clearCart)
			return fmt.Errorf("read cart: %w", err)
		}
		if err := s.carts.Delete(ctx, order.CustomerID); err != nil {
			clearCart.Fail(err)
			s.logStep(ctx, order.ID, clearCart)
			return fmt.Errorf("delete cart: %w", err)
		}
		snapshot = snap
		clearCart.Complete()
		s.logStep(ctx, order.ID, clearCart)
		return nil
	})
	if err != nil {
		persist.Fail(err)
		s.logStep(ctx, order.ID, persist)
		if clearCart.Status == domain.SagaStepCompleted {
			s.restoreCart(ctx, order, snapshot, &clearCart)
		}
		return nil, err
	}

	persist.Complete()
	s.logStep(ctx, order.ID, persist)
	return skipped, nil
}

// restoreCart is the compensating action for the clear_cart step.
func (s *OrderService) restoreCart(ctx context.Context, order *domain.Order, snapshot *domain.Cart, step *domain.SagaStep) {
	log := logger.FromContextOr(ctx, s.logger)
	sagaCompensations.Inc()

	if snapshot != nil {
		if err := s.carts.Save(context.WithoutCancel(ctx), snapshot); err != nil {
			log.ErrorContext(ctx, "failed to restore cart after checkout rollback",
				slog.String("order_id", order.ID),
				slog.String("customer_id", order.CustomerID),
				slog.String("error", err.Error()),
			)
			return
		}
	}
	step.Compensate()
	s.logStep(ctx, order.ID, *step)
}

func (s *OrderService) logStep(ctx context.Context, orderID string, step domain.SagaStep) {
	log := logger.FromContextOr(ctx, s.logger)
	attrs := []any{
		slog.String("order_id", orderID),
		slog.String("step", step.Name),
		slog.String("status", step.Status),
	}
	if step.Error != "" {
		attrs = append(attrs, slog.String("error", step.Error))
	}
	if step.Status == domain.SagaStepFailed {
		log.WarnContext(ctx, "checkout saga step", attrs...)
		return
	}
	log.DebugContext(ctx, "checkout saga step", attrs...)
}

// sellerRevenue accumulates revenue per seller in first-seen order.
type sellerRevenue struct {
	order   []string
	amounts map[string]float64
}

func newSellerRevenue() *sellerRevenue {
	return &sellerRevenue{amounts: make(map[string]float64)}
}

func (r *sellerRevenue) add(sellerID string, amount float64) {
	if _, ok := r.amounts[sellerID]; !ok {
		r.order = append(r.order, sellerID)
	}
	r.amounts[sellerID] += amount
}

// decrementStock applies each item's stock decrement in submission order.
// With tolerant set, store errors are logged as consistency gaps and the
// loop continues; otherwise the first error is returned.
func (s *OrderService) decrementStock(ctx context.Context, products repository.ProductRepository, order *domain.Order, tolerant bool) (*sellerRevenue, []event.SkippedItem, error) {
	log := logger.FromContextOr(ctx, s.logger)
	revenue := newSellerRevenue()
	var skipped []event.SkippedItem

	skip := func(productID, reason string) {
		itemsSkipped.WithLabelValues(reason).Inc()
		skipped = append(skipped, event.SkippedItem{ProductID: productID, Reason: reason})
	}

	for _, item := range order.Items {
		if item.Skippable() {
			skip(item.ProductID, reasonInvalidItem)
			continue
		}

		change, err := products.DecrementStock(ctx, item.ProductID, item.Quantity)
		switch {
		case err == nil:
			if change.SellerID != "" {
				revenue.add(change.SellerID, item.LineTotal())
			}
		case apperrors.IsNotFound(err):
			if s.cfg.Policy == domain.MissingReferenceReject && !tolerant {
				return nil, nil, apperrors.MissingReference("product", []string{item.ProductID})
			}
			if s.cfg.Policy == domain.MissingReferenceReject {
				checkoutGaps.WithLabelValues(stepDecrementStock).Inc()
				log.WarnContext(ctx, "checkout consistency gap: product disappeared after reference check",
					slog.String("order_id", order.ID),
					slog.String("product_id", item.ProductID),
				)
			}
			skip(item.ProductID, reasonMissingProduct)
		case tolerant:
			checkoutGaps.WithLabelValues(stepDecrementStock).Inc()
			log.WarnContext(ctx, "checkout consistency gap: stock decrement failed",
				slog.String("order_id", order.ID),
				slog.String("product_id", item.ProductID),
				slog.Int("quantity", item.Quantity),
				slog.String("error", err.Error()),
			)
			skip(item.ProductID, reasonStoreError)
		default:
			return nil, nil, fmt.Errorf("decrement stock for product %s: %w", item.ProductID, err)
		}
	}

	return revenue, skipped, nil
}

// creditSellers adds each seller's accumulated revenue to its total sales.
func (s *OrderService) creditSellers(ctx context.Context, sellers repository.SellerRepository, order *domain.Order, revenue *sellerRevenue, tolerant bool) error {
	log := logger.FromContextOr(ctx, s.logger)

	for _, sellerID := range revenue.order {
		amount := revenue.amounts[sellerID]
		err := sellers.AddSales(ctx, sellerID, amount)
		switch {
		case err == nil:
		case apperrors.IsNotFound(err):
			if s.cfg.Policy == domain.MissingReferenceReject && !tolerant {
				return apperrors.MissingReference("seller", []string{sellerID})
			}
			if s.cfg.Policy == domain.MissingReferenceReject {
				checkoutGaps.WithLabelValues(stepAddSellerSales).Inc()
				log.WarnContext(ctx, "checkout consistency gap: seller not found",
					slog.String("order_id", order.ID),
					slog.String("seller_id", sellerID),
					slog.Float64("amount", amount),
				)
				continue
			}
			log.InfoContext(ctx, "skipping revenue for missing seller",
				slog.String("order_id", order.ID),
				slog.String("seller_id", sellerID),
				slog.String("reason", reasonMissingSeller),
			)
		case tolerant:
			checkoutGaps.WithLabelValues(stepAddSellerSales).Inc()
			log.WarnContext(ctx, "checkout consistency gap: seller sales update failed",
				slog.String("order_id", order.ID),
				slog.String("seller_id", sellerID),
				slog.Float64("amount", amount),
				slog.String("error", err.Error()),
			)
		default:
			return fmt.Errorf("add sales for seller %s: %w", sellerID, err)
		}
	}
	return nil
}

// ListOrdersByUser returns the customer's orders, newest first.
func (s *OrderService) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.store.Orders().ListByCustomer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
