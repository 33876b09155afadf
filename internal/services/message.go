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

// MessageService handles chat persistence and seen tracking. It gates every
// operation on swap party membership and, for sends, on the swap being in a
// state where messaging is open.
type MessageService struct {
	messageRepo repository.MessageStore
	swapRepo    repository.SwapStore
}

// NewMessageService creates a new message service
func NewMessageService(messageRepo repository.MessageStore, swapRepo repository.SwapStore) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		swapRepo:    swapRepo,
	}
}

// SendMessageInput is the request body for sending a chat message
type SendMessageInput struct {
	SwapID        string  `json:"swap_id"`
	Content       string  `json:"content"`
	AttachmentURL *string `json:"attachment_url,omitempty"`
}

// Send persists a new chat message. Messaging is only open on accepted
// swaps; pending and rejected swaps have no chat. The sender is seeded into
// the seen set so their own messages never count as unread.
func (s *MessageService) Send(ctx context.Context, userID string, input SendMessageInput) (*models.Message, error) {
	if input.SwapID == "" {
		return nil, NewValidationError("swap_id is required")
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, NewValidationError("message content cannot be empty")
	}

	swap, err := s.swapForParty(ctx, userID, input.SwapID)
	if err != nil {
		return nil, err
	}
	if !swap.Status.AllowsMessaging() {
		return nil, NewAuthorizationError(fmt.Sprintf("messaging is not available for a %s swap", swap.Status))
	}

	msg := &models.Message{
		ID:            uuid.New().String(),
		SwapID:        swap.ID,
		SenderID:      userID,
		Content:       content,
		AttachmentURL: input.AttachmentURL,
		SeenBy:        []string{userID},
		CreatedAt:     time.Now(),
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	// Re-fetch with the sender summary populated.
	full, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return full, nil
}

// List retrieves all messages in a swap, oldest first. Party only.
func (s *MessageService) List(ctx context.Context, userID, swapID string) ([]*models.Message, error) {
	if _, err := s.swapForParty(ctx, userID, swapID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListBySwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	return messages, nil
}

// MarkSeen adds the caller to the seen set of every message in the swap and
// returns the refreshed list. Idempotent.
func (s *MessageService) MarkSeen(ctx context.Context, userID, swapID string) ([]*models.Message, error) {
	if _, err := s.swapForParty(ctx, userID, swapID); err != nil {
		return nil, err
	}

	if err := s.messageRepo.MarkSeen(ctx, swapID, userID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.ListBySwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	return messages, nil
}

// UnreadCount counts messages in the swap the caller has not seen.
func (s *MessageService) UnreadCount(ctx context.Context, userID, swapID string) (int, error) {
	if _, err := s.swapForParty(ctx, userID, swapID); err != nil {
		return 0, err
	}
	return s.messageRepo.UnreadCount(ctx, swapID, userID)
}

// UserSwapsWithLatest lists the caller's messaging-eligible swaps with the
// latest chat line and unread count embedded, for the conversation list.
func (s *MessageService) UserSwapsWithLatest(ctx context.Context, userID string) ([]*models.SwapWithLatestMessage, error) {
	swaps, err := s.swapRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	conversations := []*models.SwapWithLatestMessage{}
	for _, swap := range swaps {
		if !swap.Status.AllowsMessaging() {
			continue
		}

		entry := &models.SwapWithLatestMessage{Swap: swap}

		latest, err := s.messageRepo.LatestBySwap(ctx, swap.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		entry.LatestMessage = latest

		unread, err := s.messageRepo.UnreadCount(ctx, swap.ID, userID)
		if err != nil {
			return nil, err
		}
		entry.UnreadCount = unread

		conversations = append(conversations, entry)
	}
	return conversations, nil
}

// GetForRelay fetches a persisted message on behalf of the gateway before
// it fans the message out to the swap's room. Party only.
func (s *MessageService) GetForRelay(ctx context.Context, userID, messageID string) (*models.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("message not found")
		}
		return nil, err
	}

	if _, err := s.swapForParty(ctx, userID, msg.SwapID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *MessageService) swapForParty(ctx context.Context, userID, swapID string) (*models.Swap, error) {
	swap, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("swap not found")
		}
		return nil, err
	}
	if !swap.IsParty(userID) {
		return nil, NewAuthorizationError("you are not a party to this swap")
	}
	return swap, nil
}
