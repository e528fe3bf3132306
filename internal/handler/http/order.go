package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/service"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/httputil"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/validator"
)

// Idempotency headers for order placement.
const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLength  = 255
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// PlaceOrder handles POST /api/users/{userId}/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.PathParam(w, r, "userId")
	if !ok {
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		httputil.WriteBadRequest(w, r, "Idempotency-Key must be at most 255 characters")
		return
	}

	var req service.PlaceOrderInput
	if err := validator.DecodeJSON(w, r, &req); err != nil {
		httputil.DecodeError(w, r, err, h.logger)
		return
	}

	result, err := h.service.PlaceOrder(r.Context(), userID, req, key)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if result.Replayed {
		w.Header().Set(IdempotentReplayedHeader, "true")
		httputil.WriteJSON(w, http.StatusOK, result.Order)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result.Order)
}

// ListOrdersByUser handles GET /api/orders/user/{userId}
func (h *OrderHandler) ListOrdersByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.PathParam(w, r, "userId")
	if !ok {
		return
	}

	orders, err := h.service.ListOrdersByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, orders)
}
