package repository

import (
	"context"
	"fmt"

	"skill-barter-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user together with their skill set
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, display_name, token, skills, rating_average, rating_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.DisplayName, user.Token, user.Skills,
		user.RatingAverage, user.RatingCount, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, display_name, token, skills, rating_average, rating_count, created_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.DisplayName, &user.Token, &user.Skills,
		&user.RatingAverage, &user.RatingCount, &user.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetSummary retrieves the minimal user shape used in embedded responses
func (r *UserRepository) GetSummary(ctx context.Context, id string) (*models.UserSummary, error) {
	query := `
		SELECT id, display_name, rating_average, rating_count
		FROM users
		WHERE id = $1
	`
	var summary models.UserSummary
	err := r.db.QueryRow(ctx, query, id).Scan(
		&summary.ID, &summary.DisplayName, &summary.RatingAverage, &summary.RatingCount,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user summary: %w", err)
	}
	return &summary, nil
}

// AddSkills appends skills to a user's owned set, ignoring duplicates
func (r *UserRepository) AddSkills(ctx context.Context, userID string, skills []string) error {
	query := `
		UPDATE users
		SET skills = (
			SELECT ARRAY(SELECT DISTINCT s FROM unnest(skills || $1::text[]) AS s ORDER BY s)
		)
		WHERE id = $2
	`
	result, err := r.db.Exec(ctx, query, skills, userID)
	if err != nil {
		return fmt.Errorf("failed to add skills: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MissingSkills returns the subset of skills the user does not own
func (r *UserRepository) MissingSkills(ctx context.Context, userID string, skills []string) ([]string, error) {
	query := `
		SELECT ARRAY(SELECT s FROM unnest($1::text[]) AS s WHERE NOT (s = ANY(skills)))
		FROM users
		WHERE id = $2
	`
	var missing []string
	err := r.db.QueryRow(ctx, query, skills, userID).Scan(&missing)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to check skill ownership: %w", err)
	}
	return missing, nil
}
