package repository

import (
	"context"
	"errors"

	"skill-barter-backend/internal/models"
)

// Sentinel errors shared by all store implementations.
var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when a conditional swap update lost
	// the race against a concurrent writer.
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
)

// UserStore persists users and their skill ownership.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetSummary(ctx context.Context, id string) (*models.UserSummary, error)
	AddSkills(ctx context.Context, userID string, skills []string) error
	// MissingSkills returns the subset of skills the user does not own.
	MissingSkills(ctx context.Context, userID string, skills []string) ([]string, error)
}

// SwapStore persists swap records and their lifecycle state.
type SwapStore interface {
	Create(ctx context.Context, swap *models.Swap) error
	GetByID(ctx context.Context, id string) (*models.Swap, error)
	// UpdateTransition writes a mutated swap conditionally on the version
	// it was read at, bumping swap.Version on success. Returns
	// ErrVersionConflict if a concurrent writer got there first.
	UpdateTransition(ctx context.Context, swap *models.Swap) error
	ListMarketplace(ctx context.Context) ([]*models.Swap, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Swap, error)
}

// MessageStore persists chat messages and per-user seen tracking.
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	ListBySwap(ctx context.Context, swapID string) ([]*models.Message, error)
	// MarkSeen adds the user to the seen set of every message in the swap
	// not already containing them. Idempotent.
	MarkSeen(ctx context.Context, swapID, userID string) error
	UnreadCount(ctx context.Context, swapID, userID string) (int, error)
	LatestBySwap(ctx context.Context, swapID string) (*models.Message, error)
}

// ReviewStore persists reviews and keeps user rating aggregates in step.
type ReviewStore interface {
	ExistsForSwap(ctx context.Context, reviewerID, swapID string) (bool, error)
	// CreateWithAggregates inserts the review and recomputes the
	// reviewee's rating average and count in a single transaction.
	CreateWithAggregates(ctx context.Context, review *models.Review) error
}
