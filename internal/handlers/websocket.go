package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"skill-barter-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for MVP
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub            *services.WSHub
	userService    *services.UserService
	swapService    *services.SwapService
	messageService *services.MessageService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	userService *services.UserService,
	swapService *services.SwapService,
	messageService *services.MessageService,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		userService:    userService,
		swapService:    swapService,
		messageService: messageService,
	}
}

// HandleWebSocket handles WebSocket connections. The session token comes in
// as a query parameter; connections without a valid token are refused.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	userID, err := h.userService.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	userName := ""
	if summary, err := h.userService.GetSummary(r.Context(), userID); err == nil {
		userName = summary.DisplayName
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	ctx := r.Context()
	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendError(userID, "Invalid message format")
			continue
		}

		if err := h.handleMessage(ctx, userID, userName, msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("Failed to handle message")
			h.sendError(userID, err.Error())
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, userID, userName string, msg services.WSMessage) error {
	switch msg.Type {
	case services.WSEventJoinSwapRoom:
		return h.handleJoinRoom(ctx, userID, userName, msg)
	case services.WSEventLeaveSwapRoom:
		return h.handleLeaveRoom(userID, userName, msg)
	case services.WSEventTypingStart, services.WSEventTypingStop:
		return h.handleTyping(userID, userName, msg)
	case services.WSEventSendMessage:
		return h.handleSendMessage(ctx, userID, msg)
	case services.WSEventTaskCompleted, services.WSEventTaskApproved:
		return h.handleSwapRefresh(ctx, userID, msg)
	default:
		h.sendError(userID, "Unknown message type")
		return nil
	}
}

// handleJoinRoom admits a swap party into the swap's room
func (h *WebSocketHandler) handleJoinRoom(ctx context.Context, userID, userName string, msg services.WSMessage) error {
	if msg.SwapID == "" {
		h.sendError(userID, "swap_id is required")
		return nil
	}

	// Only the swap's two parties may join its room.
	if _, err := h.swapService.GetSwapForParty(ctx, userID, msg.SwapID); err != nil {
		h.sendError(userID, err.Error())
		return nil
	}

	h.hub.JoinRoom(msg.SwapID, userID)
	h.hub.BroadcastToRoom(msg.SwapID, services.WSMessage{
		Type:     services.WSEventUserJoined,
		SwapID:   msg.SwapID,
		UserID:   userID,
		UserName: userName,
	}, userID)
	return nil
}

// handleLeaveRoom drops the user from the swap's room
func (h *WebSocketHandler) handleLeaveRoom(userID, userName string, msg services.WSMessage) error {
	if msg.SwapID == "" {
		h.sendError(userID, "swap_id is required")
		return nil
	}

	h.hub.LeaveRoom(msg.SwapID, userID)
	h.hub.BroadcastToRoom(msg.SwapID, services.WSMessage{
		Type:     services.WSEventUserLeft,
		SwapID:   msg.SwapID,
		UserID:   userID,
		UserName: userName,
	}, userID)
	return nil
}

// handleTyping relays a typing indicator to the other room members. Never
// echoed back to the sender, never persisted.
func (h *WebSocketHandler) handleTyping(userID, userName string, msg services.WSMessage) error {
	if msg.SwapID == "" {
		h.sendError(userID, "swap_id is required")
		return nil
	}
	if !h.hub.InRoom(msg.SwapID, userID) {
		h.sendError(userID, "join the swap room before typing")
		return nil
	}

	h.hub.BroadcastToRoom(msg.SwapID, services.WSMessage{
		Type:     msg.Type,
		SwapID:   msg.SwapID,
		UserID:   userID,
		UserName: userName,
	}, userID)
	return nil
}

// handleSendMessage relays a message persisted over REST to the room. The
// gateway never persists chat itself, it only delivers.
func (h *WebSocketHandler) handleSendMessage(ctx context.Context, userID string, msg services.WSMessage) error {
	if msg.MessageID == "" {
		h.sendError(userID, "message_id is required")
		return nil
	}

	message, err := h.messageService.GetForRelay(ctx, userID, msg.MessageID)
	if err != nil {
		h.sendError(userID, err.Error())
		return nil
	}

	h.hub.BroadcastToRoom(message.SwapID, services.WSMessage{
		Type:      services.WSEventNewMessage,
		SwapID:    message.SwapID,
		MessageID: message.ID,
		UserID:    message.SenderID,
		Data:      message,
	}, userID)
	return nil
}

// handleSwapRefresh re-fetches the authoritative swap record and broadcasts
// it to the room, so every connected party sees fresh state even when the
// triggering client's copy was stale.
func (h *WebSocketHandler) handleSwapRefresh(ctx context.Context, userID string, msg services.WSMessage) error {
	if msg.SwapID == "" {
		h.sendError(userID, "swap_id is required")
		return nil
	}

	swap, err := h.swapService.GetSwapForParty(ctx, userID, msg.SwapID)
	if err != nil {
		// Failed refetch drops this broadcast, never the connection.
		h.sendError(userID, err.Error())
		return nil
	}

	h.hub.BroadcastToRoom(swap.ID, services.WSMessage{
		Type:   services.WSEventSwapUpdated,
		SwapID: swap.ID,
		Data:   swap,
	}, "")
	return nil
}

// sendError sends an error frame to a user's connection
func (h *WebSocketHandler) sendError(userID, message string) {
	if err := h.hub.SendToUser(userID, services.WSMessage{
		Type:    services.WSEventError,
		Message: message,
	}); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Failed to send error frame")
	}
}
