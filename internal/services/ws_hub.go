package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"skill-barter-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocket event types exchanged with clients.
const (
	WSEventJoinSwapRoom  = "join_swap_room"
	WSEventLeaveSwapRoom = "leave_swap_room"
	WSEventTypingStart   = "typing_start"
	WSEventTypingStop    = "typing_stop"
	WSEventSendMessage   = "send_message"
	WSEventTaskCompleted = "task_completed"
	WSEventTaskApproved  = "task_approved"

	WSEventNewMessage  = "new_message"
	WSEventSwapUpdated = "swap_updated"
	WSEventUserJoined  = "user_joined"
	WSEventUserLeft    = "user_left"
	WSEventError       = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string      `json:"type"`
	SwapID    string      `json:"swap_id,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
	UserID    string      `json:"user_id,omitempty"`
	UserName  string      `json:"user_name,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// WSConn is the connection surface the hub writes to. *websocket.Conn
// satisfies it.
type WSConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// wsClient wraps a connection with a write lock so hub broadcasts and
// per-connection error frames never interleave frames on the wire.
type wsClient struct {
	conn    WSConn
	writeMu sync.Mutex
}

func (c *wsClient) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections and per-swap rooms. Room membership
// is in-memory socket-session state only, rebuilt on every reconnect.
type WSHub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
	rooms   map[string]map[string]struct{}
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		clients: make(map[string]*wsClient),
		rooms:   make(map[string]map[string]struct{}),
	}
}

// Register registers a new WebSocket connection for a user
func (h *WSHub) Register(userID string, conn WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close existing connection if any
	if existing, exists := h.clients[userID]; exists {
		existing.conn.Close()
	}

	h.clients[userID] = &wsClient{conn: conn}

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes a user's connection and drops them from every room
func (h *WSHub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unregisterLocked(userID)
}

func (h *WSHub) unregisterLocked(userID string) {
	client, exists := h.clients[userID]
	if !exists {
		return
	}
	client.conn.Close()
	delete(h.clients, userID)

	for swapID, members := range h.rooms {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, swapID)
		}
	}

	log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
}

// IsOnline checks if a user is connected
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.clients[userID]
	return exists
}

// JoinRoom adds a connected user to a swap's room
func (h *WSHub) JoinRoom(swapID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, exists := h.rooms[swapID]
	if !exists {
		members = make(map[string]struct{})
		h.rooms[swapID] = members
	}
	members[userID] = struct{}{}

	log.Debug().Str("user_id", userID).Str("swap_id", swapID).Msg("Joined swap room")
}

// LeaveRoom removes a user from a swap's room
func (h *WSHub) LeaveRoom(swapID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, exists := h.rooms[swapID]; exists {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, swapID)
		}
	}

	log.Debug().Str("user_id", userID).Str("swap_id", swapID).Msg("Left swap room")
}

// InRoom checks whether a user has joined a swap's room
func (h *WSHub) InRoom(swapID, userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[swapID][userID]
	return ok
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	client, exists := h.clients[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := client.send(data); err != nil {
		h.Unregister(userID)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// BroadcastToRoom sends a message to every room member except excludeUserID.
// Per-recipient write failures drop that connection but never abort the
// rest of the fan-out.
func (h *WSHub) BroadcastToRoom(swapID string, message WSMessage, excludeUserID string) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("swap_id", swapID).Msg("Failed to marshal room broadcast")
		return
	}

	h.mu.RLock()
	recipients := make([]string, 0, len(h.rooms[swapID]))
	for userID := range h.rooms[swapID] {
		if userID == excludeUserID {
			continue
		}
		if _, online := h.clients[userID]; online {
			recipients = append(recipients, userID)
		}
	}
	h.mu.RUnlock()

	for _, userID := range recipients {
		h.mu.RLock()
		client, exists := h.clients[userID]
		h.mu.RUnlock()
		if !exists {
			continue
		}

		if err := client.send(data); err != nil {
			log.Error().
				Err(err).
				Str("user_id", userID).
				Str("swap_id", swapID).
				Str("type", message.Type).
				Msg("Failed to deliver room broadcast")
			h.Unregister(userID)
		}
	}
}

// NotifySwapUpdated broadcasts authoritative swap state to the swap's room.
// Satisfies the lifecycle engine's Notifier.
func (h *WSHub) NotifySwapUpdated(swap *models.Swap) {
	h.BroadcastToRoom(swap.ID, WSMessage{
		Type:   WSEventSwapUpdated,
		SwapID: swap.ID,
		Data:   swap,
	}, "")
}
