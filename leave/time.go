package leave

import (
	"time"
)

// =============================================================================
// WINDOW - Half-open time range used for request aggregation
// =============================================================================

// Window is the range [Start, End). A request falls in a window when its
// StartTime is in range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t is in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) String() string {
	return "[" + w.Start.Format(time.DateOnly) + ", " + w.End.Format(time.DateOnly) + ")"
}

// YearWindow returns the calendar year containing t, in t's location.
func YearWindow(t time.Time) Window {
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(1, 0, 0)}
}

// MonthWindow returns the calendar month containing t, in t's location.
func MonthWindow(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// PreviousMonthWindow returns the calendar month immediately before the one
// containing t. January rolls back to December of the previous year.
func PreviousMonthWindow(t time.Time) Window {
	current := MonthWindow(t)
	return Window{Start: current.Start.AddDate(0, -1, 0), End: current.Start}
}

// =============================================================================
// SERVICE ELAPSED - Whole years and months between hire date and asOf
// =============================================================================

// ServiceElapsed returns whole years and whole months of service at asOf.
// Both values are truncated, never rounded: one day short of an anniversary
// still counts as the previous unit. months is the total month count, so
// years == months/12. asOf before hire yields (0, 0).
func ServiceElapsed(hire, asOf time.Time) (years, months int) {
	hire = hire.In(asOf.Location())
	if !asOf.After(hire) {
		return 0, 0
	}

	months = (asOf.Year()-hire.Year())*12 + int(asOf.Month()) - int(hire.Month())

	// AddDate normalizes short months (Jan 31 + 1 month = Mar 3), so step back
	// until the anniversary is not after asOf.
	for months > 0 && hire.AddDate(0, months, 0).After(asOf) {
		months--
	}
	if months < 0 {
		months = 0
	}

	return months / 12, months
}

// YearsOfService is the years part of ServiceElapsed.
func YearsOfService(hire, asOf time.Time) int {
	years, _ := ServiceElapsed(hire, asOf)
	return years
}

// MonthsOfService is the total months part of ServiceElapsed.
func MonthsOfService(hire, asOf time.Time) int {
	_, months := ServiceElapsed(hire, asOf)
	return months
}
