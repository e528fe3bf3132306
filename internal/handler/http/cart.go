package http

import (
	"log/slog"
	"net/http"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/service"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/httputil"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// GetCart handles GET /api/cart/{userId}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.PathParam(w, r, "userId")
	if !ok {
		return
	}

	cart, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cart)
}

// AddItem handles POST /api/cart/{userId}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.PathParam(w, r, "userId")
	if !ok {
		return
	}

	var req service.AddCartItemInput
	if err := validator.DecodeJSON(w, r, &req); err != nil {
		httputil.DecodeError(w, r, err, h.logger)
		return
	}

	cart, err := h.service.AddItem(r.Context(), userID, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cart)
}

// UpdateItem handles PUT /api/cart/{userId}/items/{productId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.PathParam(w, r, "userId")
	if !ok {
		return
	}
	productID, ok := httputil.PathParam(w, r, "productId")
	if !ok {
		return
	}

	var req service.UpdateCartItemInput
	if err := validator.DecodeJSON(w, r, &req); err != nil {
		httputil.DecodeError(w, r, err, h.logger)
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), userID, productID, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/cart/{userId}/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.PathParam(w, r, "userId")
	if !ok {
		return
	}
	productID, ok := httputil.PathParam(w, r, "productId")
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cart)
}

// ClearCart handles DELETE /api/cart/{userId}
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.PathParam(w, r, "userId")
	if !ok {
		return
	}

	if err := h.service.ClearCart(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
