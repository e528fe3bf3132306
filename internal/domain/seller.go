package domain

// Seller owns products. TotalSales is only ever increased by placed orders.
type Seller struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	Rating     float64 `json:"rating"`
	TotalSales float64 `json:"totalSales"`
}
