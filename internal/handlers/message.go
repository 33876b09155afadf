package handlers

import (
	"encoding/json"
	"net/http"

	"skill-barter-backend/internal/middleware"
	"skill-barter-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MessageHandler handles chat-related HTTP requests
type MessageHandler struct {
	messageService    *services.MessageService
	attachmentService *services.AttachmentService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService *services.MessageService, attachmentService *services.AttachmentService) *MessageHandler {
	return &MessageHandler{
		messageService:    messageService,
		attachmentService: attachmentService,
	}
}

// SendMessage handles POST /api/v1/messages
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var input services.SendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.messageService.Send(ctx, userID, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("swap_id", msg.SwapID).
		Str("message_id", msg.ID).
		Msg("Message sent")

	respondJSON(w, http.StatusCreated, msg)
}

// ListMessages handles GET /api/v1/messages/{swap_id}
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	swapID := chi.URLParam(r, "swap_id")

	messages, err := h.messageService.List(ctx, userID, swapID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// MarkSeen handles PATCH /api/v1/messages/{swap_id}/seen
func (h *MessageHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	swapID := chi.URLParam(r, "swap_id")

	messages, err := h.messageService.MarkSeen(ctx, userID, swapID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// UnreadCount handles GET /api/v1/messages/{swap_id}/unread-count
func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	swapID := chi.URLParam(r, "swap_id")

	count, err := h.messageService.UnreadCount(ctx, userID, swapID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

// UserSwaps handles GET /api/v1/messages/user-swaps
func (h *MessageHandler) UserSwaps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	conversations, err := h.messageService.UserSwapsWithLatest(ctx, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, conversations)
}

// PresignAttachment handles POST /api/v1/messages/attachments
func (h *MessageHandler) PresignAttachment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.PresignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ContentType == "" {
		req.ContentType = "application/octet-stream"
	}

	response, err := h.attachmentService.PresignUpload(ctx, userID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("swap_id", req.SwapID).
		Str("filename", req.Filename).
		Msg("Attachment upload URL generated")

	respondJSON(w, http.StatusOK, response)
}
