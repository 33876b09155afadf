package services

// Typed errors returned by the service layer. Handlers map each class to an
// HTTP status; the message is surfaced to the client as-is.

// ValidationError marks missing or malformed input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NewValidationError creates a validation error
func NewValidationError(reason string) error {
	return &ValidationError{Reason: reason}
}

// AuthorizationError marks a caller acting on a swap they are not a party
// to, or otherwise out of turn.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string { return e.Reason }

// NewAuthorizationError creates an authorization error
func NewAuthorizationError(reason string) error {
	return &AuthorizationError{Reason: reason}
}

// NotFoundError marks an unknown swap, message, user or review id.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string { return e.Reason }

// NewNotFoundError creates a not-found error
func NewNotFoundError(reason string) error {
	return &NotFoundError{Reason: reason}
}

// StateConflictError marks an operation that is not valid for the swap's
// current lifecycle state.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string { return e.Reason }

// NewStateConflictError creates a state-conflict error
func NewStateConflictError(reason string) error {
	return &StateConflictError{Reason: reason}
}
