package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	pkgkafka "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/kafka"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.topics = append(r.topics, topic)
	r.events = append(r.events, e)
	return nil
}

func TestProducer_PublishReviewSubmitted(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, "marketplace", slog.New(slog.DiscardHandler))

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	rv := &domain.Review{ID: "r1", ProductID: "p1", CustomerID: "c1", Rating: 4, Date: time.Now().UTC()}
	require.NoError(t, p.PublishReviewSubmitted(ctx, rv, 4.5, true))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "marketplace.review.submitted", pub.topics[0])

	evt := pub.events[0]
	assert.Equal(t, TypeReviewSubmitted, evt.EventType)
	assert.Equal(t, "p1", evt.AggregateID)
	assert.Equal(t, "corr-1", evt.CorrelationID)

	var data ReviewSubmittedData
	require.NoError(t, evt.UnmarshalData(&data))
	assert.Equal(t, "r1", data.ReviewID)
	assert.Equal(t, 4.5, data.AvgRating)
	assert.True(t, data.Created)
}

func TestProducer_PublishOrderPlaced(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, "", slog.New(slog.DiscardHandler))

	order := &domain.Order{
		ID:         "o1",
		CustomerID: "u1",
		Total:      50,
		Status:     domain.OrderStatusPending,
		Items:      []domain.OrderItem{{ProductID: "p1", ProductName: "Dates", Quantity: 5, Price: 10}},
	}
	skipped := []SkippedItem{{ProductID: "p9", Reason: "missing_product"}}
	require.NoError(t, p.PublishOrderPlaced(context.Background(), order, domain.CheckoutStrict, skipped))

	assert.Equal(t, "order.placed", pub.topics[0])

	var data OrderPlacedData
	require.NoError(t, pub.events[0].UnmarshalData(&data))
	assert.Equal(t, "strict", data.Mode)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "Dates", data.Items[0].Name)
	assert.Equal(t, skipped, data.SkippedItems)
}

func TestProducer_PublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	p := NewProducer(pub, "marketplace", slog.New(slog.DiscardHandler))

	err := p.PublishOrderPlaced(context.Background(), &domain.Order{ID: "o1"}, domain.CheckoutLenient, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish order.placed event")
}
