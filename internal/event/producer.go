package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	pkgkafka "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/kafka"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/logger"
)

// Event types. Topics are these names under the configured prefix.
const (
	TypeReviewSubmitted = "review.submitted"
	TypeOrderPlaced     = "order.placed"
)

// Aggregate type constants.
const (
	AggregateTypeProduct = "product"
	AggregateTypeOrder   = "order"
)

// SourceMarketplace identifies events emitted by this service.
const SourceMarketplace = "marketplace-service"

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	ReviewID   string    `json:"review_id"`
	ProductID  string    `json:"product_id"`
	CustomerID string    `json:"customer_id"`
	Rating     int       `json:"rating"`
	AvgRating  float64   `json:"avg_rating"`
	Created    bool      `json:"created"`
	Date       time.Time `json:"date"`
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	OrderID      string          `json:"order_id"`
	CustomerID   string          `json:"customer_id"`
	Total        float64         `json:"total"`
	Status       string          `json:"status"`
	Mode         string          `json:"mode"`
	Items        []OrderItemData `json:"items"`
	SkippedItems []SkippedItem   `json:"skipped_items,omitempty"`
}

// OrderItemData is the event payload for an order item.
type OrderItemData struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// SkippedItem records an item whose stock or seller update did not happen.
type SkippedItem struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// Producer publishes marketplace domain events.
type Producer struct {
	publisher pkgkafka.Publisher
	prefix    string
	logger    *slog.Logger
}

// NewProducer creates a new event producer. Events go to
// "<prefix>.<event type>".
func NewProducer(publisher pkgkafka.Publisher, prefix string, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		prefix:    prefix,
		logger:    logger,
	}
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.Review, avgRating float64, created bool) error {
	data := ReviewSubmittedData{
		ReviewID:   review.ID,
		ProductID:  review.ProductID,
		CustomerID: review.CustomerID,
		Rating:     review.Rating,
		AvgRating:  avgRating,
		Created:    created,
		Date:       review.Date,
	}
	return p.publish(ctx, TypeReviewSubmitted, review.ProductID, AggregateTypeProduct, data)
}

// PublishOrderPlaced publishes an order.placed event with the items that
// were skipped during stock and seller updates.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order, mode domain.CheckoutMode, skipped []SkippedItem) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	data := OrderPlacedData{
		OrderID:      order.ID,
		CustomerID:   order.CustomerID,
		Total:        order.Total,
		Status:       order.Status,
		Mode:         string(mode),
		Items:        items,
		SkippedItems: skipped,
	}
	return p.publish(ctx, TypeOrderPlaced, order.ID, AggregateTypeOrder, data)
}

func (p *Producer) publish(ctx context.Context, eventType, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, SourceMarketplace, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	topic := pkgkafka.Topic(p.prefix, eventType)
	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("event_id", evt.EventID),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
