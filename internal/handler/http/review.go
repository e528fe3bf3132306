package http

import (
	"log/slog"
	"net/http"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/service"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/httputil"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/validator"
)

// ReviewHandler handles HTTP requests for product review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// SubmitReviewResponse is returned by SubmitReview.
type SubmitReviewResponse struct {
	Review    *domain.Review `json:"review"`
	AvgRating float64        `json:"avgRating"`
}

// ListReviews handles GET /api/products/{id}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.PathParam(w, r, "id")
	if !ok {
		return
	}

	reviews, err := h.service.ListReviews(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, reviews)
}

// SubmitReview handles POST /api/products/{id}/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.PathParam(w, r, "id")
	if !ok {
		return
	}

	var req service.SubmitReviewInput
	if err := validator.DecodeJSON(w, r, &req); err != nil {
		httputil.DecodeError(w, r, err, h.logger)
		return
	}

	result, err := h.service.SubmitReview(r.Context(), productID, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, SubmitReviewResponse{Review: result.Review, AvgRating: result.AvgRating})
}
