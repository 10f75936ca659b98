package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

// The engine itself never returns these for missing data; it degrades to zero.
// They are used by the workflow and stores.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid leave request")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrDuplicateName is returned by stores when a category name collides
	// with another category after NormalizeName.
	ErrDuplicateName = errors.New("duplicate category name")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InsufficientBalanceError reports a request that exceeds the remaining hours.
type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	CategoryID CategoryID
	Remaining  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: remaining %s hours, requested %s hours",
		e.Remaining.String(), e.Requested.String())
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// TransitionError reports a disallowed status change.
type TransitionError struct {
	RequestID RequestID
	From      Status
	To        Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("request %s cannot move from %s to %s", e.RequestID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateName)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
