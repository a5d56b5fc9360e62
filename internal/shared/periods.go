package shared

import "errors"

// Payroll period states shared by the period, validation and liquidation modules.
const (
	PeriodStateDraft      = "draft"
	PeriodStateProcessing = "processing"
	PeriodStateClosed     = "closed"
)

// ErrInvalidPeriodTransition indicates status change not allowed.
var ErrInvalidPeriodTransition = errors.New("period transition invalid")

// ValidatePeriodTransition checks transitions according to policy. Leaving the
// closed state requires an audited reopen.
func ValidatePeriodTransition(current, target string, auditedReopen bool) error {
	if current == target {
		return nil
	}
	switch current {
	case PeriodStateDraft:
		if target == PeriodStateProcessing || target == PeriodStateClosed {
			return nil
		}
	case PeriodStateProcessing:
		if target == PeriodStateClosed || target == PeriodStateDraft {
			return nil
		}
	case PeriodStateClosed:
		if target == PeriodStateProcessing && auditedReopen {
			return nil
		}
	}
	return ErrInvalidPeriodTransition
}

// IsEditableState reports whether ordinary edits are accepted in state.
func IsEditableState(state string) bool {
	return state == PeriodStateDraft || state == PeriodStateProcessing
}
