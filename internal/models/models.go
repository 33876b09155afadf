package models

import "time"

// SwapStatus is the lifecycle state of a swap.
type SwapStatus string

const (
	StatusPending           SwapStatus = "pending"
	StatusInProgress        SwapStatus = "in_progress"
	StatusSenderCompleted   SwapStatus = "sender_completed"
	StatusReceiverCompleted SwapStatus = "receiver_completed"
	StatusBothCompleted     SwapStatus = "both_completed"
	StatusCompleted         SwapStatus = "completed"
	StatusRejected          SwapStatus = "rejected"
	StatusIncomplete        SwapStatus = "incomplete"
)

// IsTerminal reports whether no further transitions are possible.
func (s SwapStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusIncomplete
}

// AllowsMessaging reports whether chat is open for a swap in this state.
// Pending, rejected and incomplete swaps have no chat.
func (s SwapStatus) AllowsMessaging() bool {
	switch s {
	case StatusInProgress, StatusSenderCompleted, StatusReceiverCompleted,
		StatusBothCompleted, StatusCompleted:
		return true
	}
	return false
}

// AllowsTaskCompletion reports whether a party may still mark their task done.
func (s SwapStatus) AllowsTaskCompletion() bool {
	switch s {
	case StatusInProgress, StatusSenderCompleted, StatusReceiverCompleted:
		return true
	}
	return false
}

// AllowsIncompleteReport reports whether a party may still report the swap
// as incomplete.
func (s SwapStatus) AllowsIncompleteReport() bool {
	return s.AllowsTaskCompletion() || s == StatusBothCompleted
}

// DifficultyLevel describes how demanding the offered work is.
type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
)

// Valid reports whether d is a known difficulty level.
func (d DifficultyLevel) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Role identifies which side of a swap a user is on.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Other returns the counterpart role.
func (r Role) Other() Role {
	if r == RoleSender {
		return RoleReceiver
	}
	return RoleSender
}

// RoleState tracks one party's completion and approval progress.
type RoleState struct {
	TaskCompleted   bool       `json:"task_completed"`
	TaskCompletedAt *time.Time `json:"task_completed_at,omitempty"`
	Approved        bool       `json:"approved"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
}

// User represents a user in the system
type User struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	Token         string    `json:"token,omitempty"`
	Skills        []string  `json:"skills"`
	RatingAverage float64   `json:"rating_average"`
	RatingCount   int       `json:"rating_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserSummary is the minimal user shape embedded in swap and message responses.
type UserSummary struct {
	ID            string  `json:"id"`
	DisplayName   string  `json:"display_name"`
	RatingAverage float64 `json:"rating_average"`
	RatingCount   int     `json:"rating_count"`
}

// Swap represents a bilateral skill exchange between two users
type Swap struct {
	ID               string          `json:"id"`
	SenderID         string          `json:"sender_id"`
	ReceiverID       *string         `json:"receiver_id,omitempty"`
	OfferedSkills    []string        `json:"offered_skills"`
	RequestedSkill   string          `json:"requested_skill"`
	Message          string          `json:"message,omitempty"`
	AcceptorMessage  string          `json:"acceptor_message,omitempty"`
	ProposerDeadline time.Time       `json:"proposer_deadline"`
	AcceptorDeadline *time.Time      `json:"acceptor_deadline,omitempty"`
	Status           SwapStatus      `json:"status"`
	DifficultyLevel  DifficultyLevel `json:"difficulty_level"`
	IsUrgent         bool            `json:"is_urgent"`
	SenderState      RoleState       `json:"sender_state"`
	ReceiverState    RoleState       `json:"receiver_state"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	ReportedBy       *string         `json:"reported_by,omitempty"`
	ReportedAt       *time.Time      `json:"reported_at,omitempty"`
	IncompleteReason string          `json:"incomplete_reason,omitempty"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Populated for API responses
	Sender   *UserSummary `json:"sender,omitempty"`
	Receiver *UserSummary `json:"receiver,omitempty"`
}

// RoleOf returns the role a user plays in this swap, if any.
func (s *Swap) RoleOf(userID string) (Role, bool) {
	if s.SenderID == userID {
		return RoleSender, true
	}
	if s.ReceiverID != nil && *s.ReceiverID == userID {
		return RoleReceiver, true
	}
	return "", false
}

// IsParty reports whether the user is one of the swap's two parties.
func (s *Swap) IsParty(userID string) bool {
	_, ok := s.RoleOf(userID)
	return ok
}

// StateFor returns the mutable per-role state for the given role.
func (s *Swap) StateFor(r Role) *RoleState {
	if r == RoleSender {
		return &s.SenderState
	}
	return &s.ReceiverState
}

// CounterpartID returns the id of the other party, if assigned.
func (s *Swap) CounterpartID(userID string) (string, bool) {
	role, ok := s.RoleOf(userID)
	if !ok {
		return "", false
	}
	if role == RoleSender {
		if s.ReceiverID == nil {
			return "", false
		}
		return *s.ReceiverID, true
	}
	return s.SenderID, true
}

// Message represents one chat line scoped to a swap
type Message struct {
	ID            string    `json:"id"`
	SwapID        string    `json:"swap_id"`
	SenderID      string    `json:"sender_id"`
	Content       string    `json:"content"`
	AttachmentURL *string   `json:"attachment_url,omitempty"`
	SeenBy        []string  `json:"seen_by"`
	CreatedAt     time.Time `json:"created_at"`

	// Populated for API responses
	Sender *UserSummary `json:"sender,omitempty"`
}

// SeenByUser reports whether the user has acknowledged this message.
func (m *Message) SeenByUser(userID string) bool {
	for _, id := range m.SeenBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Review represents a one-directional rating left after a completed swap
type Review struct {
	ID         string    `json:"id"`
	SwapID     string    `json:"swap_id"`
	ReviewerID string    `json:"reviewer_id"`
	RevieweeID string    `json:"reviewee_id"`
	Rating     int       `json:"rating"`
	Feedback   string    `json:"feedback,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SwapWithLatestMessage pairs a swap with its most recent chat line for
// the conversation list.
type SwapWithLatestMessage struct {
	Swap          *Swap    `json:"swap"`
	LatestMessage *Message `json:"latest_message,omitempty"`
	UnreadCount   int      `json:"unread_count"`
}

// UserSwapBuckets groups a user's swaps the way the client renders them.
type UserSwapBuckets struct {
	OpenSwaps      []*Swap `json:"open_swaps"`
	ActiveSwaps    []*Swap `json:"active_swaps"`
	CompletedSwaps []*Swap `json:"completed_swaps"`
}
