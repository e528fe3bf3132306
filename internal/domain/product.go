package domain

// Product is a listed item. Rating is derived from the product's effective
// reviews and Stock never drops below zero.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	SellerID    string  `json:"sellerId,omitempty"`
	Stock       int     `json:"stock"`
	Rating      float64 `json:"rating"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
}

// StockChange is the outcome of an atomic stock decrement.
type StockChange struct {
	ProductID string
	SellerID  string
	Stock     int
}
