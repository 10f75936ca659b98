/*
Package leave provides the leave balance engine.

PURPOSE:
  Answers "how many hours of this leave category can this employee still
  take?" by combining a category-specific accrual rule with the hours already
  recorded against the employee's leave requests.

KEY CONCEPTS IN THIS FILE (types.go):
  - Profile: the employee data the engine needs (hire date only)
  - Category: a leave category with an optional hours cap
  - Request: a recorded leave request with caller-supplied hours and a status
  - Status buckets: which statuses count as consumed, approved or pending

ACCRUAL KINDS:
  Annual Leave     tenure ladder, calendar-year window, 8 hours per day
  Menstrual Leave  monthly pool with previous-month carry-forward
  everything else  fixed pool (cap minus consumed), 5000 when uncapped

USAGE:
  engine := leave.NewEngine(store, slog.Default())
  hours, err := engine.RemainingHours(ctx, "cat-annual", "emp-1", time.Time{}, "")

SEE ALSO:
  - engine.go: dispatch and the three accrual strategies
  - ports.go: read ports the engine consumes
  - workflow.go: submission and approval flows that call the engine
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type CategoryID string
type RequestID string

// =============================================================================
// STATUS - Leave request lifecycle
// =============================================================================

// Status is stored as its integer value, matching the legacy schema.
type Status int

const (
	StatusPending         Status = 0
	StatusManagerApproved Status = 1
	StatusManagerRejected Status = 2
	StatusHrApproved      Status = 3
	StatusHrRejected      Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusManagerApproved:
		return "manager_approved"
	case StatusManagerRejected:
		return "manager_rejected"
	case StatusHrApproved:
		return "hr_approved"
	case StatusHrRejected:
		return "hr_rejected"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusHrRejected
}

// CanTransition reports whether a request in status s may move to next.
//
//	Pending         -> ManagerApproved | ManagerRejected
//	ManagerApproved -> HrApproved      | HrRejected
//
// Rejected and HR-approved requests are final.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusManagerApproved || next == StatusManagerRejected
	case StatusManagerApproved:
		return next == StatusHrApproved || next == StatusHrRejected
	default:
		return false
	}
}

// Status buckets used by the accrual rules.
var (
	// ConsumedStatuses count against generic and annual entitlement and feed
	// the menstrual carry-forward.
	ConsumedStatuses = []Status{StatusPending, StatusManagerApproved, StatusHrApproved}

	// ApprovedStatuses form the menstrual "approved this month" bucket.
	ApprovedStatuses = []Status{StatusManagerApproved, StatusHrApproved}

	// PendingStatuses form the menstrual "pending this month" bucket.
	PendingStatuses = []Status{StatusPending}
)

// =============================================================================
// ENTITIES
// =============================================================================

// Profile is the employee data the engine reads. A nil HireDate disables
// tenure-based accrual.
type Profile struct {
	EmployeeID EmployeeID
	Name       string
	Email      string
	HireDate   *time.Time
}

// Category is a leave category. A nil TotalHoursCap means uncapped.
type Category struct {
	ID            CategoryID
	Name          string
	TotalHoursCap *decimal.Decimal
}

// Kind returns the accrual kind derived from the category name.
func (c Category) Kind() Kind { return KindOf(c.Name) }

// Request is a recorded leave request. RequestedHours is caller-supplied and
// is not derived from StartTime/EndTime.
type Request struct {
	ID             RequestID
	EmployeeID     EmployeeID
	CategoryID     CategoryID
	StartTime      time.Time
	EndTime        time.Time
	RequestedHours int
	Status         Status
	Reason         string

	// Set by the approval flow
	DecidedBy      string
	DecisionReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Hours returns RequestedHours as a decimal.
func (r Request) Hours() decimal.Decimal {
	return decimal.NewFromInt(int64(r.RequestedHours))
}

// =============================================================================
// CONSTANTS
// =============================================================================

var (
	// UncappedSentinel is reported for generic categories without a cap.
	UncappedSentinel = decimal.NewFromInt(5000)

	// HoursPerDay converts ladder days into hours.
	HoursPerDay = decimal.NewFromInt(8)

	// DefaultMenstrualHours is the monthly pool when the category has no cap.
	DefaultMenstrualHours = decimal.NewFromInt(8)
)

// CapPtr is a convenience for building categories with a cap.
func CapPtr(hours int64) *decimal.Decimal {
	d := decimal.NewFromInt(hours)
	return &d
}
