package repository

import (
	"context"
	"fmt"

	"skill-barter-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository handles database operations for chat messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageSelect = `
	SELECT m.id, m.swap_id, m.sender_id, m.content, m.attachment_url,
		m.seen_by, m.created_at,
		u.display_name, u.rating_average, u.rating_count
	FROM messages m
	JOIN users u ON m.sender_id = u.id
`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	var sender models.UserSummary
	err := row.Scan(
		&msg.ID, &msg.SwapID, &msg.SenderID, &msg.Content, &msg.AttachmentURL,
		&msg.SeenBy, &msg.CreatedAt,
		&sender.DisplayName, &sender.RatingAverage, &sender.RatingCount,
	)
	if err != nil {
		return nil, err
	}
	sender.ID = msg.SenderID
	msg.Sender = &sender
	return &msg, nil
}

// Create creates a new message
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, swap_id, sender_id, content, attachment_url, seen_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.SwapID, msg.SenderID, msg.Content, msg.AttachmentURL,
		msg.SeenBy, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetByID retrieves a message by ID with the sender summary populated
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	msg, err := scanMessage(r.db.QueryRow(ctx, messageSelect+` WHERE m.id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// ListBySwap retrieves all messages in a swap, oldest first
func (r *MessageRepository) ListBySwap(ctx context.Context, swapID string) ([]*models.Message, error) {
	query := messageSelect + `
		WHERE m.swap_id = $1
		ORDER BY m.created_at ASC
	`
	rows, err := r.db.Query(ctx, query, swapID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// MarkSeen adds the user to the seen set of every message in the swap not
// already containing them. The guard inside the array update makes repeated
// calls a no-op.
func (r *MessageRepository) MarkSeen(ctx context.Context, swapID, userID string) error {
	query := `
		UPDATE messages
		SET seen_by = array_append(seen_by, $1)
		WHERE swap_id = $2 AND NOT ($1 = ANY(seen_by))
	`
	_, err := r.db.Exec(ctx, query, userID, swapID)
	if err != nil {
		return fmt.Errorf("failed to mark messages as seen: %w", err)
	}
	return nil
}

// UnreadCount counts messages in the swap the user has not seen yet
func (r *MessageRepository) UnreadCount(ctx context.Context, swapID, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE swap_id = $1 AND NOT ($2 = ANY(seen_by))
	`
	var count int
	err := r.db.QueryRow(ctx, query, swapID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// LatestBySwap retrieves the most recent message in a swap, or ErrNotFound
// for an empty chat.
func (r *MessageRepository) LatestBySwap(ctx context.Context, swapID string) (*models.Message, error) {
	query := messageSelect + `
		WHERE m.swap_id = $1
		ORDER BY m.created_at DESC
		LIMIT 1
	`
	msg, err := scanMessage(r.db.QueryRow(ctx, query, swapID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	return msg, nil
}
