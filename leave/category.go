package leave

import "strings"

// Kind selects the accrual rule for a category.
type Kind string

const (
	KindGeneric   Kind = "generic"
	KindAnnual    Kind = "annual"
	KindMenstrual Kind = "menstrual"
)

// Category names that select a non-generic rule. Matching is trimmed and
// case-insensitive; renaming one of these categories demotes it to generic.
const (
	AnnualLeaveName    = "Annual Leave"
	MenstrualLeaveName = "Menstrual Leave"
)

// NormalizeName is the form used for name matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// KindOf maps a category name to its accrual kind.
func KindOf(name string) Kind {
	switch NormalizeName(name) {
	case NormalizeName(AnnualLeaveName):
		return KindAnnual
	case NormalizeName(MenstrualLeaveName):
		return KindMenstrual
	default:
		return KindGeneric
	}
}

// DefaultCategories are seeded into an empty store.
func DefaultCategories() []Category {
	return []Category{
		{ID: "annual-leave", Name: AnnualLeaveName},
		{ID: "menstrual-leave", Name: MenstrualLeaveName, TotalHoursCap: CapPtr(8)},
		{ID: "sick-leave", Name: "Sick Leave", TotalHoursCap: CapPtr(40)},
		{ID: "personal-leave", Name: "Personal Leave"},
	}
}
