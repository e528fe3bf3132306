package domain

import (
	"errors"
	"time"
)

// ErrCartItemNotFound is returned when updating or removing a product that
// is not in the cart.
var ErrCartItemNotFound = errors.New("cart item not found")

// Cart is a user's shopping cart. Version increases on every write and is
// used for optimistic locking; zero means the cart has never been stored.
type Cart struct {
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	Version   int64      `json:"version"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartItem is a product snapshot held in a cart.
type CartItem struct {
	ProductID  string  `json:"productId"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Image      string  `json:"image"`
	SellerName string  `json:"sellerName"`
	Quantity   int     `json:"quantity"`
	Stock      int     `json:"stock"`
}

// NewCart returns an empty, unsaved cart.
func NewCart(userID string) *Cart {
	return &Cart{UserID: userID, Items: []CartItem{}}
}

// AddItem adds item, merging quantities when the product is already present.
// The stored snapshot fields are refreshed from item.
func (c *Cart) AddItem(item CartItem) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			item.Quantity += c.Items[i].Quantity
			c.Items[i] = item
			return
		}
	}
	c.Items = append(c.Items, item)
}

// SetQuantity sets the quantity of a product. Zero removes it.
func (c *Cart) SetQuantity(productID string, qty int) error {
	if qty <= 0 {
		return c.RemoveItem(productID)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = qty
			return nil
		}
	}
	return ErrCartItemNotFound
}

// RemoveItem deletes a product from the cart.
func (c *Cart) RemoveItem(productID string) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return ErrCartItemNotFound
}

// Subtotal is the sum of price × quantity over all items.
func (c *Cart) Subtotal() float64 {
	var total float64
	for _, it := range c.Items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}
