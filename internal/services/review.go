package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skill-barter-backend/internal/models"
	"skill-barter-backend/internal/repository"

	"github.com/google/uuid"
)

// ReviewService files post-completion reviews and keeps the reviewee's
// rating aggregates in step with the review set.
type ReviewService struct {
	reviewRepo repository.ReviewStore
	swapRepo   repository.SwapStore
}

// NewReviewService creates a new review service
func NewReviewService(reviewRepo repository.ReviewStore, swapRepo repository.SwapStore) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		swapRepo:   swapRepo,
	}
}

// CreateReviewInput is the request body for filing a review
type CreateReviewInput struct {
	SwapID     string `json:"swap_id"`
	RevieweeID string `json:"reviewee_id"`
	Rating     int    `json:"rating"`
	Feedback   string `json:"feedback"`
}

// Create files a review for a completed swap. Reviewer and reviewee must be
// the swap's two distinct parties and a reviewer may review a swap at most
// once.
func (s *ReviewService) Create(ctx context.Context, reviewerID string, input CreateReviewInput) (*models.Review, error) {
	if input.SwapID == "" {
		return nil, NewValidationError("swap_id is required")
	}
	if input.RevieweeID == "" {
		return nil, NewValidationError("reviewee_id is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, NewValidationError("rating must be between 1 and 5")
	}
	if reviewerID == input.RevieweeID {
		return nil, NewValidationError("cannot review yourself")
	}

	swap, err := s.swapRepo.GetByID(ctx, input.SwapID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("swap not found")
		}
		return nil, err
	}

	if !swap.IsParty(reviewerID) {
		return nil, NewAuthorizationError("you are not a party to this swap")
	}
	if !swap.IsParty(input.RevieweeID) {
		return nil, NewValidationError("reviewee is not a party to this swap")
	}
	if swap.Status != models.StatusCompleted {
		return nil, NewStateConflictError("reviews can only be filed for completed swaps")
	}

	exists, err := s.reviewRepo.ExistsForSwap(ctx, reviewerID, input.SwapID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if exists {
		return nil, NewStateConflictError("you have already reviewed this swap")
	}

	review := &models.Review{
		ID:         uuid.New().String(),
		SwapID:     input.SwapID,
		ReviewerID: reviewerID,
		RevieweeID: input.RevieweeID,
		Rating:     input.Rating,
		Feedback:   strings.TrimSpace(input.Feedback),
		CreatedAt:  time.Now(),
	}

	if err := s.reviewRepo.CreateWithAggregates(ctx, review); err != nil {
		// The unique index backs up the existence check under races.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewStateConflictError("you have already reviewed this swap")
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	return review, nil
}
