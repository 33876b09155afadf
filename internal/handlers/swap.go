package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"skill-barter-backend/internal/middleware"
	"skill-barter-backend/internal/models"
	"skill-barter-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// SwapHandler handles swap-related HTTP requests
type SwapHandler struct {
	swapService *services.SwapService
}

// NewSwapHandler creates a new swap handler
func NewSwapHandler(swapService *services.SwapService) *SwapHandler {
	return &SwapHandler{
		swapService: swapService,
	}
}

// UpdateSwapStatusRequest drives one lifecycle transition. Either status or
// approval is set, never both.
type UpdateSwapStatusRequest struct {
	Status   string `json:"status,omitempty"`
	Approval string `json:"approval,omitempty"`

	// Acceptance fields, required when status == "accepted".
	AcceptorDeadline time.Time `json:"acceptor_deadline,omitempty"`
	AcceptorMessage  string    `json:"acceptor_message,omitempty"`

	// Required when status == "incomplete".
	Reason string `json:"reason,omitempty"`
}

// CreateSwap handles POST /api/v1/swaps
func (h *SwapHandler) CreateSwap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var input services.ProposeSwapInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	swap, err := h.swapService.Propose(ctx, userID, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("swap_id", swap.ID).
		Str("requested_skill", swap.RequestedSkill).
		Msg("Swap proposed")

	respondJSON(w, http.StatusCreated, swap)
}

// Marketplace handles GET /api/v1/swaps/marketplace
func (h *SwapHandler) Marketplace(w http.ResponseWriter, r *http.Request) {
	swaps, err := h.swapService.Marketplace(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, swaps)
}

// UserSwaps handles GET /api/v1/swaps/user-swaps
func (h *SwapHandler) UserSwaps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	buckets, err := h.swapService.UserSwaps(ctx, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, buckets)
}

// GetSwap handles GET /api/v1/swaps/{swap_id}
func (h *SwapHandler) GetSwap(w http.ResponseWriter, r *http.Request) {
	swapID := chi.URLParam(r, "swap_id")
	if swapID == "" {
		respondError(w, "swap_id is required", http.StatusBadRequest)
		return
	}

	swap, err := h.swapService.GetSwap(r.Context(), swapID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, swap)
}

// UpdateStatus handles PUT /api/v1/swaps/{swap_id}/status
func (h *SwapHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	swapID := chi.URLParam(r, "swap_id")

	if swapID == "" {
		respondError(w, "swap_id is required", http.StatusBadRequest)
		return
	}

	var req UpdateSwapStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var swap *models.Swap
	var err error

	switch {
	case req.Approval == "approve":
		swap, err = h.swapService.Approve(ctx, userID, swapID)
	case req.Approval != "":
		respondError(w, "approval must be \"approve\"", http.StatusBadRequest)
		return
	case req.Status == "accepted":
		swap, err = h.swapService.Accept(ctx, userID, swapID, services.AcceptSwapInput{
			AcceptorDeadline: req.AcceptorDeadline,
			AcceptorMessage:  req.AcceptorMessage,
		})
	case req.Status == "rejected":
		swap, err = h.swapService.Reject(ctx, userID, swapID)
	case req.Status == "task_completed":
		swap, err = h.swapService.MarkTaskCompleted(ctx, userID, swapID)
	case req.Status == "incomplete":
		swap, err = h.swapService.ReportIncomplete(ctx, userID, swapID, req.Reason)
	default:
		respondError(w, "unknown status transition", http.StatusBadRequest)
		return
	}

	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("swap_id", swapID).
		Str("status", string(swap.Status)).
		Msg("Swap transition applied")

	respondJSON(w, http.StatusOK, swap)
}
