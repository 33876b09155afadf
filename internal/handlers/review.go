package handlers

import (
	"encoding/json"
	"net/http"

	"skill-barter-backend/internal/middleware"
	"skill-barter-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ReviewHandler handles review-related HTTP requests
type ReviewHandler struct {
	reviewService *services.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
	}
}

// CreateReview handles POST /api/v1/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var input services.CreateReviewInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	review, err := h.reviewService.Create(ctx, userID, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("reviewer_id", userID).
		Str("reviewee_id", review.RevieweeID).
		Str("swap_id", review.SwapID).
		Int("rating", review.Rating).
		Msg("Review filed")

	respondJSON(w, http.StatusCreated, review)
}
