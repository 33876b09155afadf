package repository

import (
	"context"
	"errors"
	"fmt"

	"skill-barter-backend/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewRepository handles database operations for reviews
type ReviewRepository struct {
	db *pgxpool.Pool
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// ExistsForSwap checks whether the reviewer already reviewed this swap
func (r *ReviewRepository) ExistsForSwap(ctx context.Context, reviewerID, swapID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reviews WHERE reviewer_id = $1 AND swap_id = $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, reviewerID, swapID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check review existence: %w", err)
	}
	return exists, nil
}

// CreateWithAggregates inserts the review and recomputes the reviewee's
// rating aggregates from the review set, all in one transaction so
// concurrent reviews cannot leave the cached mean stale.
func (r *ReviewRepository) CreateWithAggregates(ctx context.Context, review *models.Review) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO reviews (id, swap_id, reviewer_id, reviewee_id, rating, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, insert,
		review.ID, review.SwapID, review.ReviewerID, review.RevieweeID,
		review.Rating, review.Feedback, review.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation on (reviewer_id, swap_id)
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	recompute := `
		UPDATE users
		SET rating_average = sub.avg_rating, rating_count = sub.cnt
		FROM (
			SELECT COALESCE(AVG(rating), 0) AS avg_rating, COUNT(*) AS cnt
			FROM reviews
			WHERE reviewee_id = $1
		) AS sub
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, recompute, review.RevieweeID); err != nil {
		return fmt.Errorf("failed to recompute rating aggregates: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit review transaction: %w", err)
	}
	return nil
}
