package repository

import (
	"context"
	"fmt"
	"time"

	"skill-barter-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SwapRepository handles database operations for swaps
type SwapRepository struct {
	db *pgxpool.Pool
}

// NewSwapRepository creates a new swap repository
func NewSwapRepository(db *pgxpool.Pool) *SwapRepository {
	return &SwapRepository{db: db}
}

const swapSelect = `
	SELECT s.id, s.sender_id, s.receiver_id, s.offered_skills, s.requested_skill,
		s.message, s.acceptor_message, s.proposer_deadline, s.acceptor_deadline,
		s.status, s.difficulty_level, s.is_urgent,
		s.sender_task_completed, s.sender_task_completed_at,
		s.sender_approved, s.sender_approved_at,
		s.receiver_task_completed, s.receiver_task_completed_at,
		s.receiver_approved, s.receiver_approved_at,
		s.completed_at, s.reported_by, s.reported_at, s.incomplete_reason,
		s.version, s.created_at, s.updated_at,
		su.display_name, su.rating_average, su.rating_count,
		ru.display_name, ru.rating_average, ru.rating_count
	FROM swaps s
	JOIN users su ON s.sender_id = su.id
	LEFT JOIN users ru ON s.receiver_id = ru.id
`

// scanSwap scans one joined swap row, including party summaries.
func scanSwap(row pgx.Row) (*models.Swap, error) {
	var swap models.Swap
	var status, difficulty string
	var receiverName *string
	var receiverAvg *float64
	var receiverCount *int
	var senderSummary models.UserSummary

	err := row.Scan(
		&swap.ID, &swap.SenderID, &swap.ReceiverID, &swap.OfferedSkills, &swap.RequestedSkill,
		&swap.Message, &swap.AcceptorMessage, &swap.ProposerDeadline, &swap.AcceptorDeadline,
		&status, &difficulty, &swap.IsUrgent,
		&swap.SenderState.TaskCompleted, &swap.SenderState.TaskCompletedAt,
		&swap.SenderState.Approved, &swap.SenderState.ApprovedAt,
		&swap.ReceiverState.TaskCompleted, &swap.ReceiverState.TaskCompletedAt,
		&swap.ReceiverState.Approved, &swap.ReceiverState.ApprovedAt,
		&swap.CompletedAt, &swap.ReportedBy, &swap.ReportedAt, &swap.IncompleteReason,
		&swap.Version, &swap.CreatedAt, &swap.UpdatedAt,
		&senderSummary.DisplayName, &senderSummary.RatingAverage, &senderSummary.RatingCount,
		&receiverName, &receiverAvg, &receiverCount,
	)
	if err != nil {
		return nil, err
	}

	swap.Status = models.SwapStatus(status)
	swap.DifficultyLevel = models.DifficultyLevel(difficulty)

	senderSummary.ID = swap.SenderID
	swap.Sender = &senderSummary

	if swap.ReceiverID != nil && receiverName != nil {
		swap.Receiver = &models.UserSummary{
			ID:            *swap.ReceiverID,
			DisplayName:   *receiverName,
			RatingAverage: *receiverAvg,
			RatingCount:   *receiverCount,
		}
	}

	return &swap, nil
}

// Create creates a new swap
func (r *SwapRepository) Create(ctx context.Context, swap *models.Swap) error {
	query := `
		INSERT INTO swaps (id, sender_id, receiver_id, offered_skills, requested_skill,
			message, acceptor_message, proposer_deadline, acceptor_deadline,
			status, difficulty_level, is_urgent, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.Exec(ctx, query,
		swap.ID, swap.SenderID, swap.ReceiverID, swap.OfferedSkills, swap.RequestedSkill,
		swap.Message, swap.AcceptorMessage, swap.ProposerDeadline, swap.AcceptorDeadline,
		string(swap.Status), string(swap.DifficultyLevel), swap.IsUrgent,
		swap.Version, swap.CreatedAt, swap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create swap: %w", err)
	}
	return nil
}

// GetByID retrieves a swap by ID with both party summaries populated
func (r *SwapRepository) GetByID(ctx context.Context, id string) (*models.Swap, error) {
	swap, err := scanSwap(r.db.QueryRow(ctx, swapSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get swap: %w", err)
	}
	return swap, nil
}

// UpdateTransition writes a mutated swap conditionally on the version it was
// read at. The write carries every lifecycle-mutable column so a transition
// is applied atomically or not at all.
func (r *SwapRepository) UpdateTransition(ctx context.Context, swap *models.Swap) error {
	query := `
		UPDATE swaps
		SET receiver_id = $1, acceptor_message = $2, acceptor_deadline = $3,
			status = $4,
			sender_task_completed = $5, sender_task_completed_at = $6,
			sender_approved = $7, sender_approved_at = $8,
			receiver_task_completed = $9, receiver_task_completed_at = $10,
			receiver_approved = $11, receiver_approved_at = $12,
			completed_at = $13, reported_by = $14, reported_at = $15,
			incomplete_reason = $16,
			version = version + 1, updated_at = $17
		WHERE id = $18 AND version = $19
	`
	now := time.Now()
	result, err := r.db.Exec(ctx, query,
		swap.ReceiverID, swap.AcceptorMessage, swap.AcceptorDeadline,
		string(swap.Status),
		swap.SenderState.TaskCompleted, swap.SenderState.TaskCompletedAt,
		swap.SenderState.Approved, swap.SenderState.ApprovedAt,
		swap.ReceiverState.TaskCompleted, swap.ReceiverState.TaskCompletedAt,
		swap.ReceiverState.Approved, swap.ReceiverState.ApprovedAt,
		swap.CompletedAt, swap.ReportedBy, swap.ReportedAt,
		swap.IncompleteReason,
		now, swap.ID, swap.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update swap: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Either the row is gone or a concurrent transition bumped the
		// version between our read and this write.
		exists, err := r.exists(ctx, swap.ID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	swap.Version++
	swap.UpdatedAt = now
	return nil
}

func (r *SwapRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM swaps WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check swap existence: %w", err)
	}
	return exists, nil
}

// ListMarketplace retrieves open, unassigned swap proposals
func (r *SwapRepository) ListMarketplace(ctx context.Context) ([]*models.Swap, error) {
	query := swapSelect + `
		WHERE s.status = 'pending' AND s.receiver_id IS NULL
		ORDER BY s.is_urgent DESC, s.created_at DESC
	`
	return r.list(ctx, query)
}

// ListByUser retrieves every swap the user is a party to, newest first
func (r *SwapRepository) ListByUser(ctx context.Context, userID string) ([]*models.Swap, error) {
	query := swapSelect + `
		WHERE s.sender_id = $1 OR s.receiver_id = $1
		ORDER BY s.created_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *SwapRepository) list(ctx context.Context, query string, args ...any) ([]*models.Swap, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list swaps: %w", err)
	}
	defer rows.Close()

	var swaps []*models.Swap
	for rows.Next() {
		swap, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swap: %w", err)
		}
		swaps = append(swaps, swap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating swaps: %w", err)
	}
	return swaps, nil
}
