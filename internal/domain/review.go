package domain

import (
	"sort"
	"time"
)

// Review rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is one customer's review of a product. Several rows may exist for
// the same (ProductID, CustomerID); only the most recent one is effective.
type Review struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"productId"`
	CustomerID   string    `json:"customerId"`
	CustomerName string    `json:"customerName"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	Date         time.Time `json:"date"`
}

// EffectiveReviews returns the latest review per customer, newest first.
// The input is not modified.
func EffectiveReviews(rows []Review) []Review {
	sorted := make([]Review, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]Review, 0, len(sorted))
	for _, r := range sorted {
		if _, dup := seen[r.CustomerID]; dup {
			continue
		}
		seen[r.CustomerID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// MeanRating is the arithmetic mean of the ratings, or 0 for no reviews.
func MeanRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}
