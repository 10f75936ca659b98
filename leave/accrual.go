package leave

// =============================================================================
// ANNUAL LADDER - Tenure to day entitlement
// =============================================================================

// AnnualLadderDays returns the annual leave days for the given service.
// Brackets are evaluated in order and the first match wins, so an exact
// anniversary lands in the higher bracket.
//
//	months >= 6 and years < 1   3
//	1 <= years < 2              7
//	2 <= years < 3             10
//	3 <= years < 5             14
//	5 <= years < 10            15
//	years >= 10                15 + (years - 10), at most 30
//	otherwise                   0
func AnnualLadderDays(years, months int) int {
	switch {
	case months >= 6 && years < 1:
		return 3
	case years >= 1 && years < 2:
		return 7
	case years >= 2 && years < 3:
		return 10
	case years >= 3 && years < 5:
		return 14
	case years >= 5 && years < 10:
		return 15
	case years >= 10:
		return min(15+(years-10), 30)
	default:
		return 0
	}
}
