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

// transitionAttempts bounds the re-read/re-validate loop when a conditional
// write loses the race against a concurrent transition on the same swap.
const transitionAttempts = 3

// Notifier broadcasts authoritative swap state to connected clients. The
// gateway implements it; the engine only holds this reference.
type Notifier interface {
	NotifySwapUpdated(swap *models.Swap)
}

// SwapService is the swap lifecycle engine. It validates every transition
// guard before writing and applies transitions with optimistic concurrency.
type SwapService struct {
	swapRepo repository.SwapStore
	userRepo repository.UserStore
	notifier Notifier
}

// NewSwapService creates a new swap service
func NewSwapService(swapRepo repository.SwapStore, userRepo repository.UserStore) *SwapService {
	return &SwapService{
		swapRepo: swapRepo,
		userRepo: userRepo,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *SwapService) SetNotifier(n Notifier) {
	s.notifier = n
}

// ProposeSwapInput is the request body for creating a swap proposal
type ProposeSwapInput struct {
	OfferedSkills    []string  `json:"offered_skills"`
	RequestedSkill   string    `json:"requested_skill"`
	Message          string    `json:"message"`
	DifficultyLevel  string    `json:"difficulty_level"`
	IsUrgent         bool      `json:"is_urgent"`
	ProposerDeadline time.Time `json:"proposer_deadline"`
}

// AcceptSwapInput carries the acceptor's commitment
type AcceptSwapInput struct {
	AcceptorDeadline time.Time `json:"acceptor_deadline"`
	AcceptorMessage  string    `json:"acceptor_message"`
}

// Propose creates a new pending swap. The proposer must own every skill
// they offer and the deadline must be strictly in the future.
func (s *SwapService) Propose(ctx context.Context, userID string, input ProposeSwapInput) (*models.Swap, error) {
	offered := normalizeSkills(input.OfferedSkills)
	if len(offered) == 0 {
		return nil, NewValidationError("at least one offered skill is required")
	}

	requested := strings.TrimSpace(input.RequestedSkill)
	if requested == "" {
		return nil, NewValidationError("requested_skill is required")
	}

	if input.ProposerDeadline.IsZero() {
		return nil, NewValidationError("proposer_deadline is required")
	}
	if !input.ProposerDeadline.After(time.Now()) {
		return nil, NewValidationError("proposer_deadline must be in the future")
	}

	difficulty := models.DifficultyLevel(input.DifficultyLevel)
	if difficulty == "" {
		difficulty = models.DifficultyIntermediate
	}
	if !difficulty.Valid() {
		return nil, NewValidationError(fmt.Sprintf("unknown difficulty level %q", input.DifficultyLevel))
	}

	missing, err := s.userRepo.MissingSkills(ctx, userID, offered)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("user not found")
		}
		return nil, fmt.Errorf("failed to check skill ownership: %w", err)
	}
	if len(missing) > 0 {
		return nil, NewValidationError(fmt.Sprintf("you do not offer: %s", strings.Join(missing, ", ")))
	}

	now := time.Now()
	swap := &models.Swap{
		ID:               uuid.New().String(),
		SenderID:         userID,
		OfferedSkills:    offered,
		RequestedSkill:   requested,
		Message:          strings.TrimSpace(input.Message),
		ProposerDeadline: input.ProposerDeadline,
		Status:           models.StatusPending,
		DifficultyLevel:  difficulty,
		IsUrgent:         input.IsUrgent,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.swapRepo.Create(ctx, swap); err != nil {
		return nil, fmt.Errorf("failed to create swap: %w", err)
	}

	// Re-fetch so the response carries the populated sender summary.
	return s.getByID(ctx, swap.ID)
}

// Accept assigns the caller as receiver and moves the swap to in_progress.
func (s *SwapService) Accept(ctx context.Context, userID, swapID string, input AcceptSwapInput) (*models.Swap, error) {
	acceptorMessage := strings.TrimSpace(input.AcceptorMessage)

	return s.transition(ctx, swapID, func(swap *models.Swap) error {
		if swap.Status != models.StatusPending {
			return NewStateConflictError("swap is no longer open for acceptance")
		}
		if swap.ReceiverID != nil {
			return NewStateConflictError("swap has already been accepted")
		}
		if swap.SenderID == userID {
			return NewAuthorizationError("cannot accept your own swap")
		}
		if input.AcceptorDeadline.IsZero() {
			return NewValidationError("acceptor_deadline is required")
		}
		if !input.AcceptorDeadline.After(time.Now()) {
			return NewValidationError("acceptor_deadline must be in the future")
		}
		if acceptorMessage == "" {
			return NewValidationError("acceptor_message is required")
		}

		deadline := input.AcceptorDeadline
		swap.ReceiverID = &userID
		swap.AcceptorDeadline = &deadline
		swap.AcceptorMessage = acceptorMessage
		swap.Status = models.StatusInProgress
		return nil
	})
}

// Reject closes a pending swap on behalf of the intended receiver.
func (s *SwapService) Reject(ctx context.Context, userID, swapID string) (*models.Swap, error) {
	return s.transition(ctx, swapID, func(swap *models.Swap) error {
		if swap.Status != models.StatusPending {
			return NewStateConflictError("only pending swaps can be rejected")
		}
		if swap.SenderID == userID {
			return NewAuthorizationError("cannot reject your own swap")
		}

		swap.Status = models.StatusRejected
		return nil
	})
}

// MarkTaskCompleted records that the caller finished their side of the work.
func (s *SwapService) MarkTaskCompleted(ctx context.Context, userID, swapID string) (*models.Swap, error) {
	return s.transition(ctx, swapID, func(swap *models.Swap) error {
		role, ok := swap.RoleOf(userID)
		if !ok {
			return NewAuthorizationError("you are not a party to this swap")
		}
		if !swap.Status.AllowsTaskCompletion() {
			return NewStateConflictError(fmt.Sprintf("cannot mark task completed while swap is %s", swap.Status))
		}

		state := swap.StateFor(role)
		if state.TaskCompleted {
			return NewStateConflictError("task has already been marked as completed")
		}

		now := time.Now()
		state.TaskCompleted = true
		state.TaskCompletedAt = &now

		if swap.StateFor(role.Other()).TaskCompleted {
			swap.Status = models.StatusBothCompleted
		} else if role == models.RoleSender {
			swap.Status = models.StatusSenderCompleted
		} else {
			swap.Status = models.StatusReceiverCompleted
		}
		return nil
	})
}

// Approve records the caller's sign-off on the counterpart's work. Approval
// is only possible once the counterpart has marked their task completed;
// when both parties have approved, the swap reaches its terminal completed
// state and completed_at is set exactly once.
func (s *SwapService) Approve(ctx context.Context, userID, swapID string) (*models.Swap, error) {
	return s.transition(ctx, swapID, func(swap *models.Swap) error {
		role, ok := swap.RoleOf(userID)
		if !ok {
			return NewAuthorizationError("you are not a party to this swap")
		}
		if swap.Status.IsTerminal() {
			return NewStateConflictError(fmt.Sprintf("cannot approve a %s swap", swap.Status))
		}
		if !swap.StateFor(role.Other()).TaskCompleted {
			return NewStateConflictError("cannot approve before the other party has completed their task")
		}

		state := swap.StateFor(role)
		if state.Approved {
			return NewStateConflictError("you have already approved this swap")
		}

		now := time.Now()
		state.Approved = true
		state.ApprovedAt = &now

		if swap.StateFor(role.Other()).Approved {
			swap.Status = models.StatusCompleted
			swap.CompletedAt = &now
		}
		return nil
	})
}

// ReportIncomplete moves an active swap to the terminal incomplete state.
func (s *SwapService) ReportIncomplete(ctx context.Context, userID, swapID, reason string) (*models.Swap, error) {
	reason = strings.TrimSpace(reason)

	return s.transition(ctx, swapID, func(swap *models.Swap) error {
		if !swap.IsParty(userID) {
			return NewAuthorizationError("you are not a party to this swap")
		}
		if !swap.Status.AllowsIncompleteReport() {
			return NewStateConflictError(fmt.Sprintf("cannot report a %s swap as incomplete", swap.Status))
		}
		if reason == "" {
			return NewValidationError("a reason is required to report a swap as incomplete")
		}

		now := time.Now()
		swap.Status = models.StatusIncomplete
		swap.ReportedBy = &userID
		swap.ReportedAt = &now
		swap.IncompleteReason = reason
		return nil
	})
}

// GetSwap retrieves one swap with both party summaries populated.
func (s *SwapService) GetSwap(ctx context.Context, swapID string) (*models.Swap, error) {
	return s.getByID(ctx, swapID)
}

// GetSwapForParty retrieves a swap and verifies the caller is one of its
// two parties. Used by the messaging gateway for room authorization.
func (s *SwapService) GetSwapForParty(ctx context.Context, userID, swapID string) (*models.Swap, error) {
	swap, err := s.getByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if !swap.IsParty(userID) {
		return nil, NewAuthorizationError("you are not a party to this swap")
	}
	return swap, nil
}

// Marketplace lists open, unassigned proposals. Public.
func (s *SwapService) Marketplace(ctx context.Context) ([]*models.Swap, error) {
	swaps, err := s.swapRepo.ListMarketplace(ctx)
	if err != nil {
		return nil, err
	}
	if swaps == nil {
		swaps = []*models.Swap{}
	}
	return swaps, nil
}

// UserSwaps groups the caller's swaps into the three client buckets.
// Rejected swaps are dropped; incomplete ones surface alongside completed
// so disputes stay visible.
func (s *SwapService) UserSwaps(ctx context.Context, userID string) (*models.UserSwapBuckets, error) {
	swaps, err := s.swapRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	buckets := &models.UserSwapBuckets{
		OpenSwaps:      []*models.Swap{},
		ActiveSwaps:    []*models.Swap{},
		CompletedSwaps: []*models.Swap{},
	}
	for _, swap := range swaps {
		switch {
		case swap.Status == models.StatusPending:
			buckets.OpenSwaps = append(buckets.OpenSwaps, swap)
		case swap.Status == models.StatusCompleted || swap.Status == models.StatusIncomplete:
			buckets.CompletedSwaps = append(buckets.CompletedSwaps, swap)
		case swap.Status.AllowsMessaging():
			buckets.ActiveSwaps = append(buckets.ActiveSwaps, swap)
		}
	}
	return buckets, nil
}

func (s *SwapService) getByID(ctx context.Context, swapID string) (*models.Swap, error) {
	swap, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("swap not found")
		}
		return nil, err
	}
	return swap, nil
}

// transition runs one read-guard-write attempt, retrying when the
// conditional write loses against a concurrent transition. Guards run
// against a fresh read on every attempt, so no stale validation can slip
// through; on the first failing guard the transition is abandoned with no
// partial write.
func (s *SwapService) transition(ctx context.Context, swapID string, apply func(*models.Swap) error) (*models.Swap, error) {
	for attempt := 0; attempt < transitionAttempts; attempt++ {
		swap, err := s.getByID(ctx, swapID)
		if err != nil {
			return nil, err
		}

		if err := apply(swap); err != nil {
			return nil, err
		}

		err = s.swapRepo.UpdateTransition(ctx, swap)
		if err == nil {
			// Re-fetch so newly assigned parties carry their summaries.
			updated, err := s.getByID(ctx, swapID)
			if err != nil {
				return nil, err
			}
			if s.notifier != nil {
				s.notifier.NotifySwapUpdated(updated)
			}
			return updated, nil
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("swap not found")
		}
		return nil, err
	}
	return nil, NewStateConflictError("swap was modified concurrently, please retry")
}
