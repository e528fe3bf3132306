package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_submitted_total",
			Help: "Review submissions by outcome (created, updated, invalid, failed)",
		},
		[]string{"outcome"},
	)

	ordersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders placed successfully, by checkout mode",
		},
		[]string{"mode"},
	)

	// checkoutGaps counts lenient-mode writes that failed after the order
	// was created and were not retried.
	checkoutGaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_consistency_gaps_total",
			Help: "Checkout side effects that failed and were skipped",
		},
		[]string{"step"},
	)

	itemsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_items_skipped_total",
			Help: "Order items whose stock update was skipped, by reason",
		},
		[]string{"reason"},
	)

	sagaCompensations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_saga_compensations_total",
			Help: "Cart snapshots restored after a failed checkout commit",
		},
	)

	checkoutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_duration_seconds",
			Help:    "Duration of order placement in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode", "outcome"},
	)
)

// Labels for checkoutGaps.
const (
	stepDecrementStock = "decrement_stock"
	stepAddSellerSales = "add_seller_sales"
)

// Reasons an item or seller update is skipped.
const (
	reasonInvalidItem    = "invalid_item"
	reasonMissingProduct = "missing_product"
	reasonMissingSeller  = "missing_seller"
	reasonStoreError     = "store_error"
)
