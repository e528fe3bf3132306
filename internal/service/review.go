package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/event"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/repository"
	apperrors "github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/errors"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/logger"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/validator"
)

// ReviewService keeps one effective review per customer and product and
// maintains the product's rating.
type ReviewService struct {
	store    repository.Store
	producer *event.Producer
	mode     domain.CheckoutMode
	logger   *slog.Logger
}

// NewReviewService creates a new review service. In strict mode the
// upsert and rating recompute share one transaction holding the product
// row lock.
func NewReviewService(store repository.Store, producer *event.Producer, mode domain.CheckoutMode, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		store:    store,
		producer: producer,
		mode:     mode,
		logger:   logger,
	}
}

// SubmitReviewInput holds a review submission. Rating is a float so that
// fractional values can be rejected instead of failing to decode.
type SubmitReviewInput struct {
	CustomerID   string   `json:"customerId" validate:"required"`
	CustomerName string   `json:"customerName"`
	Rating       *float64 `json:"rating" validate:"required,whole,gte=1,lte=5"`
	Comment      string   `json:"comment"`
}

// ReviewResult is the outcome of SubmitReview.
type ReviewResult struct {
	Review    *domain.Review
	AvgRating float64
	Created   bool
}

// SubmitReview upserts the customer's review and recomputes the product
// rating from the deduplicated review set.
func (s *ReviewService) SubmitReview(ctx context.Context, productID string, input SubmitReviewInput) (*ReviewResult, error) {
	input.CustomerID = strings.TrimSpace(input.CustomerID)
	if err := validator.Validate(input); err != nil {
		reviewsSubmitted.WithLabelValues("invalid").Inc()
		return nil, err
	}

	var (
		result *ReviewResult
		err    error
	)
	if s.mode == domain.CheckoutStrict {
		err = s.store.WithinTx(ctx, func(tx repository.Store) error {
			var txErr error
			result, txErr = s.submit(ctx, tx, productID, input, true)
			return txErr
		})
	} else {
		result, err = s.submit(ctx, s.store, productID, input, false)
	}
	if err != nil {
		reviewsSubmitted.WithLabelValues("failed").Inc()
		return nil, err
	}

	outcome := "updated"
	if result.Created {
		outcome = "created"
	}
	reviewsSubmitted.WithLabelValues(outcome).Inc()

	log := logger.FromContextOr(ctx, s.logger)
	log.InfoContext(ctx, "review submitted",
		slog.String("review_id", result.Review.ID),
		slog.String("product_id", productID),
		slog.String("customer_id", input.CustomerID),
		slog.String("outcome", outcome),
		slog.Float64("avg_rating", result.AvgRating),
	)

	if err := s.producer.PublishReviewSubmitted(ctx, result.Review, result.AvgRating, result.Created); err != nil {
		log.WarnContext(ctx, "failed to publish review.submitted event",
			slog.String("review_id", result.Review.ID),
			slog.String("error", err.Error()),
		)
	}

	return result, nil
}

func (s *ReviewService) submit(ctx context.Context, store repository.Store, productID string, input SubmitReviewInput, lock bool) (*ReviewResult, error) {
	var err error
	if lock {
		err = store.Products().LockByID(ctx, productID)
	} else {
		_, err = store.Products().GetByID(ctx, productID)
	}
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	now := time.Now().UTC()
	rating := int(*input.Rating)

	review, err := store.Reviews().FindLatest(ctx, productID, input.CustomerID)
	created := false
	switch {
	case err == nil:
		review.Rating = rating
		review.Comment = input.Comment
		review.Date = now
		if name := strings.TrimSpace(input.CustomerName); name != "" {
			review.CustomerName = name
		}
		if err := store.Reviews().Update(ctx, review); err != nil {
			return nil, fmt.Errorf("update review: %w", err)
		}
	case apperrors.IsNotFound(err):
		created = true
		review = &domain.Review{
			ID:           uuid.NewString(),
			ProductID:    productID,
			CustomerID:   input.CustomerID,
			CustomerName: strings.TrimSpace(input.CustomerName),
			Rating:       rating,
			Comment:      input.Comment,
			Date:         now,
		}
		if err := store.Reviews().Create(ctx, review); err != nil {
			return nil, fmt.Errorf("create review: %w", err)
		}
	default:
		return nil, fmt.Errorf("find review: %w", err)
	}

	rows, err := store.Reviews().ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	avg := domain.MeanRating(domain.EffectiveReviews(rows))

	if err := store.Products().SetRating(ctx, productID, avg); err != nil {
		return nil, fmt.Errorf("set product rating: %w", err)
	}

	return &ReviewResult{Review: review, AvgRating: avg, Created: created}, nil
}

// ListReviews returns the effective reviews of a product, newest first.
// An unknown product has no reviews.
func (s *ReviewService) ListReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	rows, err := s.store.Reviews().ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return domain.EffectiveReviews(rows), nil
}
