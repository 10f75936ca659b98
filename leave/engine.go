/*
engine.go - Remaining-hours computation

PURPOSE:
  Computes how many hours of a leave category an employee may still request.
  The engine is a pure read: it never writes to the stores it is given.

DISPATCH:
  The category name picks the rule (see category.go):
    annual leave    -> remainingAnnual
    menstrual leave -> remainingMenstrual
    anything else   -> remainingGeneric

FAIL SAFE TO ZERO:
  Unknown category, unknown employee, missing hire date: each yields zero
  remaining hours and a WARN log line, never an error. Errors are returned only
  when a store call itself fails.

CONCURRENCY:
  Engine holds no mutable state. Concurrent calls are independent; there is
  no snapshot isolation against concurrent writes to the request store.

SEE ALSO:
  - accrual.go: annual tenure ladder
  - time.go: year/month windows and ServiceElapsed
*/
package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Engine computes remaining leave hours from injected read ports.
type Engine struct {
	Profiles   ProfileReader
	Categories CategoryReader
	Requests   RequestReader
	Logger     *slog.Logger

	// Now supplies the reference instant when callers pass a zero asOf.
	Now func() time.Time
}

// NewEngine wires an engine to a single store serving all three read ports.
func NewEngine(r Reader, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Profiles:   r,
		Categories: r,
		Requests:   r,
		Logger:     logger,
		Now:        time.Now,
	}
}

// =============================================================================
// BREAKDOWN - Itemized result of a computation
// =============================================================================

// Breakdown itemizes a remaining-hours computation for display. Remaining is
// always the value RemainingHours reports.
type Breakdown struct {
	EmployeeID   EmployeeID
	CategoryID   CategoryID
	CategoryName string
	Kind         Kind
	AsOf         time.Time

	// Window is the period requests were counted in; nil for generic.
	Window *Window

	// Entitlement is the pool before subtracting usage. For menstrual it is
	// the capped total available for the month.
	Entitlement  decimal.Decimal
	CarryForward decimal.Decimal

	// Used is what was subtracted from Entitlement. For menstrual it holds the
	// approved bucket only and Pending holds the rest.
	Used    decimal.Decimal
	Pending decimal.Decimal

	Remaining decimal.Decimal
	Uncapped  bool
}

func zeroBreakdown(employeeID EmployeeID, categoryID CategoryID, asOf time.Time) Breakdown {
	return Breakdown{
		EmployeeID:   employeeID,
		CategoryID:   categoryID,
		AsOf:         asOf,
		Entitlement:  decimal.Zero,
		CarryForward: decimal.Zero,
		Used:         decimal.Zero,
		Pending:      decimal.Zero,
		Remaining:    decimal.Zero,
	}
}

// =============================================================================
// PUBLIC OPERATIONS
// =============================================================================

// RemainingHours returns the non-negative hours the employee can still take
// in the category. A zero asOf means now; an empty exclude excludes nothing.
func (e *Engine) RemainingHours(ctx context.Context, categoryID CategoryID, employeeID EmployeeID, asOf time.Time, exclude RequestID) (decimal.Decimal, error) {
	b, err := e.Breakdown(ctx, categoryID, employeeID, asOf, exclude)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Remaining, nil
}

// Breakdown performs the same computation as RemainingHours and returns the
// intermediate amounts.
func (e *Engine) Breakdown(ctx context.Context, categoryID CategoryID, employeeID EmployeeID, asOf time.Time, exclude RequestID) (Breakdown, error) {
	if asOf.IsZero() {
		asOf = e.now()
	}

	category, err := e.Categories.GetCategory(ctx, categoryID)
	if err != nil {
		return Breakdown{}, fmt.Errorf("get category %s: %w", categoryID, err)
	}
	if category == nil {
		e.logger().WarnContext(ctx, "leave category not found, reporting zero balance",
			slog.String("category_id", string(categoryID)),
			slog.String("employee_id", string(employeeID)))
		return zeroBreakdown(employeeID, categoryID, asOf), nil
	}

	return e.breakdownFor(ctx, *category, employeeID, asOf, exclude)
}

// Balances computes a breakdown for every category the lister knows about.
func (e *Engine) Balances(ctx context.Context, categories CategoryLister, employeeID EmployeeID, asOf time.Time) ([]Breakdown, error) {
	if asOf.IsZero() {
		asOf = e.now()
	}

	all, err := categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	result := make([]Breakdown, 0, len(all))
	for _, c := range all {
		b, err := e.breakdownFor(ctx, c, employeeID, asOf, "")
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, nil
}

func (e *Engine) breakdownFor(ctx context.Context, category Category, employeeID EmployeeID, asOf time.Time, exclude RequestID) (Breakdown, error) {
	var (
		b   Breakdown
		err error
	)
	switch category.Kind() {
	case KindAnnual:
		b, err = e.remainingAnnual(ctx, category, employeeID, asOf, exclude)
	case KindMenstrual:
		b, err = e.remainingMenstrual(ctx, category, employeeID, asOf, exclude)
	default:
		b, err = e.remainingGeneric(ctx, category, employeeID, asOf, exclude)
	}
	if err != nil {
		return Breakdown{}, err
	}
	b.CategoryName = category.Name
	b.Kind = category.Kind()
	return b, nil
}

// =============================================================================
// ANNUAL - Tenure ladder over the calendar year
// =============================================================================

func (e *Engine) remainingAnnual(ctx context.Context, category Category, employeeID EmployeeID, asOf time.Time, exclude RequestID) (Breakdown, error) {
	b := zeroBreakdown(employeeID, category.ID, asOf)
	window := YearWindow(asOf)
	b.Window = &window

	profile, err := e.Profiles.GetProfile(ctx, employeeID)
	if err != nil {
		return Breakdown{}, fmt.Errorf("get profile %s: %w", employeeID, err)
	}
	if profile == nil || profile.HireDate == nil {
		e.logger().WarnContext(ctx, "no hire date for annual leave, reporting zero balance",
			slog.String("employee_id", string(employeeID)),
			slog.Bool("profile_found", profile != nil))
		return b, nil
	}

	years, months := ServiceElapsed(*profile.HireDate, asOf)
	days := AnnualLadderDays(years, months)
	b.Entitlement = decimal.NewFromInt(int64(days)).Mul(HoursPerDay)

	used, err := e.Requests.SumHours(ctx, HoursQuery{
		EmployeeID:   employeeID,
		CategoryName: AnnualLeaveName,
		Statuses:     ConsumedStatuses,
		Window:       &window,
		ExcludeID:    exclude,
	})
	if err != nil {
		return Breakdown{}, fmt.Errorf("sum annual hours: %w", err)
	}
	b.Used = used
	b.Remaining = nonNegative(b.Entitlement.Sub(used))
	return b, nil
}

// =============================================================================
// MENSTRUAL - Monthly pool with previous-month carry-forward
// =============================================================================

func (e *Engine) remainingMenstrual(ctx context.Context, category Category, employeeID EmployeeID, asOf time.Time, exclude RequestID) (Breakdown, error) {
	b := zeroBreakdown(employeeID, category.ID, asOf)
	thisMonth := MonthWindow(asOf)
	lastMonth := PreviousMonthWindow(asOf)
	b.Window = &thisMonth

	maxHours := DefaultMenstrualHours
	if category.TotalHoursCap != nil {
		maxHours = *category.TotalHoursCap
	}

	carry, err := e.Requests.SumHours(ctx, HoursQuery{
		EmployeeID: employeeID,
		CategoryID: category.ID,
		Statuses:   ConsumedStatuses,
		Window:     &lastMonth,
	})
	if err != nil {
		return Breakdown{}, fmt.Errorf("sum menstrual carry-forward: %w", err)
	}
	carry = decimal.Min(maxHours, carry)

	approved, err := e.Requests.SumHours(ctx, HoursQuery{
		EmployeeID: employeeID,
		CategoryID: category.ID,
		Statuses:   ApprovedStatuses,
		Window:     &thisMonth,
	})
	if err != nil {
		return Breakdown{}, fmt.Errorf("sum menstrual approved: %w", err)
	}

	pending, err := e.Requests.SumHours(ctx, HoursQuery{
		EmployeeID: employeeID,
		CategoryID: category.ID,
		Statuses:   PendingStatuses,
		Window:     &thisMonth,
		ExcludeID:  exclude,
	})
	if err != nil {
		return Breakdown{}, fmt.Errorf("sum menstrual pending: %w", err)
	}

	// The sum is capped at maxHours, so carry-forward never raises the pool.
	// Kept as-is pending product confirmation.
	totalAvailable := decimal.Min(maxHours, carry.Add(maxHours))

	b.CarryForward = carry
	b.Entitlement = totalAvailable
	b.Used = approved
	b.Pending = pending
	b.Remaining = nonNegative(totalAvailable.Sub(approved.Add(pending)))
	return b, nil
}

// =============================================================================
// GENERIC - Fixed pool
// =============================================================================

func (e *Engine) remainingGeneric(ctx context.Context, category Category, employeeID EmployeeID, asOf time.Time, exclude RequestID) (Breakdown, error) {
	b := zeroBreakdown(employeeID, category.ID, asOf)

	if category.TotalHoursCap == nil {
		b.Uncapped = true
		b.Entitlement = UncappedSentinel
		b.Remaining = UncappedSentinel
		return b, nil
	}

	used, err := e.Requests.SumHours(ctx, HoursQuery{
		EmployeeID: employeeID,
		CategoryID: category.ID,
		Statuses:   ConsumedStatuses,
		ExcludeID:  exclude,
	})
	if err != nil {
		return Breakdown{}, fmt.Errorf("sum %s hours: %w", category.ID, err)
	}

	b.Entitlement = *category.TotalHoursCap
	b.Used = used
	b.Remaining = nonNegative(b.Entitlement.Sub(used))
	return b, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
