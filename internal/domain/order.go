package domain

import (
	"encoding/json"
	"slices"
	"time"
)

// Order status values, as stored and sent on the wire.
const (
	OrderStatusPending       = "Pending"
	OrderStatusConfirmed     = "Confirmed"
	OrderStatusBeingPrepared = "Being Prepared"
	OrderStatusShipped       = "Shipped"
	OrderStatusDelivered     = "Delivered"
	OrderStatusCancelled     = "Cancelled"
)

// DefaultCustomerName is used when an order arrives without one.
const DefaultCustomerName = "Unknown"

var transitions = map[string][]string{
	OrderStatusPending:       {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:     {OrderStatusBeingPrepared, OrderStatusCancelled},
	OrderStatusBeingPrepared: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:       {OrderStatusDelivered},
	OrderStatusDelivered:     {},
	OrderStatusCancelled:     {},
}

// ValidStatuses lists every order status in lifecycle order.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusBeingPrepared,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}

// IsValidStatus reports whether status is a known order status.
func IsValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
// Status changes happen in seller dashboard flows; placement only sets the
// initial status.
func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}

// Order is created once per checkout and never rewritten afterwards.
type Order struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customerId"`
	CustomerName    string          `json:"customerName"`
	Items           []OrderItem     `json:"items"`
	Total           float64         `json:"total"`
	Status          string          `json:"status"`
	Date            time.Time       `json:"date"`
	ShippingAddress json.RawMessage `json:"shippingAddress,omitempty"`
}

// OrderItem is a line of an order with the price at purchase time.
type OrderItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// Skippable reports whether the item carries no stock or revenue effect.
func (i OrderItem) Skippable() bool {
	return i.ProductID == "" || i.Quantity <= 0
}

// LineTotal is price × quantity.
func (i OrderItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// ItemsTotal sums the line totals of every item with a positive quantity.
func ItemsTotal(items []OrderItem) float64 {
	var total float64
	for _, it := range items {
		if it.Quantity > 0 {
			total += it.LineTotal()
		}
	}
	return total
}
