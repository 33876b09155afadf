package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"skill-barter-backend/internal/models"
	"skill-barter-backend/internal/repository"

	"github.com/stretchr/testify/require"
)

// In-memory store implementations backing the service tests. The swap store
// honours the conditional-write contract so the retry path can be exercised
// without a database.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (s *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(user), nil
}

func (s *fakeUserStore) GetSummary(ctx context.Context, id string) (*models.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked(id)
}

func (s *fakeUserStore) summaryLocked(id string) (*models.UserSummary, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &models.UserSummary{
		ID:            user.ID,
		DisplayName:   user.DisplayName,
		RatingAverage: user.RatingAverage,
		RatingCount:   user.RatingCount,
	}, nil
}

func (s *fakeUserStore) AddSkills(ctx context.Context, userID string, skills []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	owned := make(map[string]struct{}, len(user.Skills))
	for _, skill := range user.Skills {
		owned[skill] = struct{}{}
	}
	for _, skill := range skills {
		if _, dup := owned[skill]; dup {
			continue
		}
		owned[skill] = struct{}{}
		user.Skills = append(user.Skills, skill)
	}
	return nil
}

func (s *fakeUserStore) MissingSkills(ctx context.Context, userID string, skills []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	owned := make(map[string]struct{}, len(user.Skills))
	for _, skill := range user.Skills {
		owned[skill] = struct{}{}
	}
	var missing []string
	for _, skill := range skills {
		if _, ok := owned[skill]; !ok {
			missing = append(missing, skill)
		}
	}
	return missing, nil
}

type fakeSwapStore struct {
	mu    sync.Mutex
	swaps map[string]*models.Swap
	users *fakeUserStore

	// beforeUpdate runs before every conditional write. Tests use it to
	// simulate concurrent writers racing the transition under test.
	beforeUpdate func()
}

func newFakeSwapStore(users *fakeUserStore) *fakeSwapStore {
	return &fakeSwapStore{swaps: make(map[string]*models.Swap), users: users}
}

func (s *fakeSwapStore) Create(ctx context.Context, swap *models.Swap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps[swap.ID] = cloneSwap(swap)
	return nil
}

func (s *fakeSwapStore) GetByID(ctx context.Context, id string) (*models.Swap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	swap, ok := s.swaps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneSwap(swap)
	s.populate(out)
	return out, nil
}

func (s *fakeSwapStore) UpdateTransition(ctx context.Context, swap *models.Swap) error {
	if s.beforeUpdate != nil {
		s.beforeUpdate()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.swaps[swap.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != swap.Version {
		return repository.ErrVersionConflict
	}
	swap.Version++
	swap.UpdatedAt = time.Now()
	s.swaps[swap.ID] = cloneSwap(swap)
	return nil
}

func (s *fakeSwapStore) ListMarketplace(ctx context.Context) ([]*models.Swap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Swap
	for _, swap := range s.swaps {
		if swap.Status == models.StatusPending && swap.ReceiverID == nil {
			entry := cloneSwap(swap)
			s.populate(entry)
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsUrgent != out[j].IsUrgent {
			return out[i].IsUrgent
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *fakeSwapStore) ListByUser(ctx context.Context, userID string) ([]*models.Swap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Swap
	for _, swap := range s.swaps {
		if swap.SenderID == userID || (swap.ReceiverID != nil && *swap.ReceiverID == userID) {
			entry := cloneSwap(swap)
			s.populate(entry)
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// bumpVersion simulates a concurrent writer winning a conditional update.
func (s *fakeSwapStore) bumpVersion(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if swap, ok := s.swaps[id]; ok {
		swap.Version++
	}
}

func (s *fakeSwapStore) populate(swap *models.Swap) {
	if s.users == nil {
		return
	}
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if sender, err := s.users.summaryLocked(swap.SenderID); err == nil {
		swap.Sender = sender
	}
	if swap.ReceiverID != nil {
		if receiver, err := s.users.summaryLocked(*swap.ReceiverID); err == nil {
			swap.Receiver = receiver
		}
	}
}

type fakeMessageStore struct {
	mu       sync.Mutex
	messages []*models.Message
	users    *fakeUserStore
}

func newFakeMessageStore(users *fakeUserStore) *fakeMessageStore {
	return &fakeMessageStore{users: users}
}

func (s *fakeMessageStore) Create(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, cloneMessage(msg))
	return nil
}

func (s *fakeMessageStore) GetByID(ctx context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ID == id {
			out := cloneMessage(msg)
			s.populateSender(out)
			return out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeMessageStore) ListBySwap(ctx context.Context, swapID string) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Message
	for _, msg := range s.messages {
		if msg.SwapID == swapID {
			entry := cloneMessage(msg)
			s.populateSender(entry)
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) MarkSeen(ctx context.Context, swapID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.SwapID == swapID && !msg.SeenByUser(userID) {
			msg.SeenBy = append(msg.SeenBy, userID)
		}
	}
	return nil
}

func (s *fakeMessageStore) UnreadCount(ctx context.Context, swapID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, msg := range s.messages {
		if msg.SwapID == swapID && !msg.SeenByUser(userID) {
			count++
		}
	}
	return count, nil
}

func (s *fakeMessageStore) LatestBySwap(ctx context.Context, swapID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].SwapID == swapID {
			out := cloneMessage(s.messages[i])
			s.populateSender(out)
			return out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeMessageStore) populateSender(msg *models.Message) {
	if s.users == nil {
		return
	}
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if sender, err := s.users.summaryLocked(msg.SenderID); err == nil {
		msg.Sender = sender
	}
}

type fakeReviewStore struct {
	mu      sync.Mutex
	reviews []*models.Review
	users   *fakeUserStore
}

func newFakeReviewStore(users *fakeUserStore) *fakeReviewStore {
	return &fakeReviewStore{users: users}
}

func (s *fakeReviewStore) ExistsForSwap(ctx context.Context, reviewerID, swapID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, review := range s.reviews {
		if review.ReviewerID == reviewerID && review.SwapID == swapID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeReviewStore) CreateWithAggregates(ctx context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reviews {
		if existing.ReviewerID == review.ReviewerID && existing.SwapID == review.SwapID {
			return repository.ErrDuplicate
		}
	}

	copied := *review
	s.reviews = append(s.reviews, &copied)

	if s.users == nil {
		return nil
	}
	sum, count := 0, 0
	for _, r := range s.reviews {
		if r.RevieweeID == review.RevieweeID {
			sum += r.Rating
			count++
		}
	}
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if user, ok := s.users.users[review.RevieweeID]; ok {
		user.RatingAverage = float64(sum) / float64(count)
		user.RatingCount = count
	}
	return nil
}

func cloneUser(user *models.User) *models.User {
	out := *user
	out.Skills = append([]string(nil), user.Skills...)
	return &out
}

func cloneSwap(swap *models.Swap) *models.Swap {
	out := *swap
	out.OfferedSkills = append([]string(nil), swap.OfferedSkills...)
	out.ReceiverID = cloneStringPtr(swap.ReceiverID)
	out.AcceptorDeadline = cloneTimePtr(swap.AcceptorDeadline)
	out.CompletedAt = cloneTimePtr(swap.CompletedAt)
	out.ReportedBy = cloneStringPtr(swap.ReportedBy)
	out.ReportedAt = cloneTimePtr(swap.ReportedAt)
	out.SenderState.TaskCompletedAt = cloneTimePtr(swap.SenderState.TaskCompletedAt)
	out.SenderState.ApprovedAt = cloneTimePtr(swap.SenderState.ApprovedAt)
	out.ReceiverState.TaskCompletedAt = cloneTimePtr(swap.ReceiverState.TaskCompletedAt)
	out.ReceiverState.ApprovedAt = cloneTimePtr(swap.ReceiverState.ApprovedAt)
	out.Sender, out.Receiver = nil, nil
	return &out
}

func cloneMessage(msg *models.Message) *models.Message {
	out := *msg
	out.SeenBy = append([]string(nil), msg.SeenBy...)
	out.AttachmentURL = cloneStringPtr(msg.AttachmentURL)
	out.Sender = nil
	return &out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Shared test scaffolding.

type testEnv struct {
	users    *fakeUserStore
	swaps    *fakeSwapStore
	messages *fakeMessageStore
	reviews  *fakeReviewStore

	userSvc    *UserService
	swapSvc    *SwapService
	messageSvc *MessageService
	reviewSvc  *ReviewService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := newFakeUserStore()
	swaps := newFakeSwapStore(users)
	messages := newFakeMessageStore(users)
	reviews := newFakeReviewStore(users)
	return &testEnv{
		users:      users,
		swaps:      swaps,
		messages:   messages,
		reviews:    reviews,
		userSvc:    NewUserService(users, "test-secret"),
		swapSvc:    NewSwapService(swaps, users),
		messageSvc: NewMessageService(messages, swaps),
		reviewSvc:  NewReviewService(reviews, swaps),
	}
}

func (e *testEnv) seedUser(t *testing.T, name string, skills ...string) *models.User {
	t.Helper()
	user, err := e.userSvc.CreateUser(context.Background(), name, skills)
	require.NoError(t, err)
	return user
}

func (e *testEnv) proposeSwap(t *testing.T, senderID string, skills ...string) *models.Swap {
	t.Helper()
	swap, err := e.swapSvc.Propose(context.Background(), senderID, ProposeSwapInput{
		OfferedSkills:    skills,
		RequestedSkill:   "photography",
		Message:          "happy to trade",
		ProposerDeadline: time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	return swap
}

func (e *testEnv) acceptSwap(t *testing.T, receiverID, swapID string) *models.Swap {
	t.Helper()
	swap, err := e.swapSvc.Accept(context.Background(), receiverID, swapID, AcceptSwapInput{
		AcceptorDeadline: time.Now().Add(96 * time.Hour),
		AcceptorMessage:  "deal",
	})
	require.NoError(t, err)
	return swap
}

// activeSwap proposes as sender and accepts as receiver, returning an
// in_progress swap between the two.
func (e *testEnv) activeSwap(t *testing.T, senderID, receiverID string) *models.Swap {
	t.Helper()
	swap := e.proposeSwap(t, senderID, "go")
	return e.acceptSwap(t, receiverID, swap.ID)
}

// completedSwap drives a swap through the full two-sided lifecycle.
func (e *testEnv) completedSwap(t *testing.T, senderID, receiverID string) *models.Swap {
	t.Helper()
	ctx := context.Background()
	swap := e.activeSwap(t, senderID, receiverID)

	_, err := e.swapSvc.MarkTaskCompleted(ctx, senderID, swap.ID)
	require.NoError(t, err)
	_, err = e.swapSvc.MarkTaskCompleted(ctx, receiverID, swap.ID)
	require.NoError(t, err)
	_, err = e.swapSvc.Approve(ctx, senderID, swap.ID)
	require.NoError(t, err)
	done, err := e.swapSvc.Approve(ctx, receiverID, swap.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, done.Status)
	return done
}
