package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/repository"
	apperrors "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/errors"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/logger"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/validator"
)

// CartService manages shopping carts. Every write is a compare-and-set on
// the cart version, so concurrent edits surface as 409 instead of being
// silently lost.
type CartService struct {
	carts  repository.CartRepository
	logger *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, logger *slog.Logger) *CartService {
	return &CartService{
		carts:  carts,
		logger: logger,
	}
}

// AddCartItemInput holds the parameters for adding an item to a cart.
type AddCartItemInput struct {
	ProductID  string  `json:"productId" validate:"required"`
	Name       string  `json:"name"`
	Price      float64 `json:"price" validate:"gte=0"`
	Image      string  `json:"image"`
	SellerName string  `json:"sellerName"`
	Quantity   int     `json:"quantity" validate:"gte=1"`
	Stock      int     `json:"stock" validate:"gte=0"`
}

// UpdateCartItemInput holds a new quantity for a cart line.
type UpdateCartItemInput struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

// GetCart returns the user's cart, or an empty cart if none exists.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return domain.NewCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem adds an item, merging quantities when the product is already in
// the cart.
func (s *CartService) AddItem(ctx context.Context, userID string, input AddCartItemInput) (*domain.Cart, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.AddItem(domain.CartItem{
		ProductID:  input.ProductID,
		Name:       input.Name,
		Price:      input.Price,
		Image:      input.Image,
		SellerName: input.SellerName,
		Quantity:   input.Quantity,
		Stock:      input.Stock,
	})

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	logger.FromContextOr(ctx, s.logger).DebugContext(ctx, "cart item added",
		slog.String("user_id", userID),
		slog.String("product_id", input.ProductID),
		slog.Int("quantity", input.Quantity),
	)
	return cart, nil
}

// UpdateQuantity sets the quantity of an existing line. Zero removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, input UpdateCartItemInput) (*domain.Cart, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, productID, func(c *domain.Cart) error {
		return c.SetQuantity(productID, *input.Quantity)
	})
}

// RemoveItem removes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, productID, func(c *domain.Cart) error {
		return c.RemoveItem(productID)
	})
}

// ClearCart deletes the user's cart.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if err := s.carts.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *CartService) mutate(ctx context.Context, userID, productID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := fn(cart); err != nil {
		if errors.Is(err, domain.ErrCartItemNotFound) {
			return nil, apperrors.NotFound("cart item", productID)
		}
		return nil, err
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *domain.Cart) error {
	if err := s.carts.SaveIfVersion(ctx, cart); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return apperrors.Conflict("cart was modified concurrently, reload and retry")
		}
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
