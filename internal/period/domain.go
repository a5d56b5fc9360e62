package period

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nomina-co/nomina/internal/shared"
)

// Periodicity is the closed set of payroll cycle lengths.
type Periodicity string

const (
	Weekly   Periodicity = "weekly"
	Biweekly Periodicity = "biweekly"
	Monthly  Periodicity = "monthly"
)

// ParsePeriodicity normalises user input into a Periodicity.
func ParsePeriodicity(raw string) (Periodicity, error) {
	switch p := Periodicity(strings.ToLower(strings.TrimSpace(raw))); p {
	case Weekly, Biweekly, Monthly:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriodicity, raw)
}

// CommercialDays is the number of payable days in one period under the
// 30-day commercial month.
func (p Periodicity) CommercialDays() int {
	switch p {
	case Weekly:
		return 7
	case Biweekly:
		return 15
	default:
		return 30
	}
}

// State is the lifecycle stage of a period.
type State string

const (
	StateDraft      State = shared.PeriodStateDraft
	StateProcessing State = shared.PeriodStateProcessing
	StateClosed     State = shared.PeriodStateClosed
)

// Editable reports whether ordinary edits are accepted.
func (s State) Editable() bool {
	return shared.IsEditableState(string(s))
}

// Totals aggregates pay figures over every computed record of a period.
type Totals struct {
	Gross          decimal.Decimal `json:"gross"`
	Deductions     decimal.Decimal `json:"deductions"`
	Net            decimal.Decimal `json:"net"`
	EmployeesCount int             `json:"employeesCount"`
}

// Equal compares totals by value.
func (t Totals) Equal(o Totals) bool {
	return t.Gross.Equal(o.Gross) && t.Deductions.Equal(o.Deductions) && t.Net.Equal(o.Net) && t.EmployeesCount == o.EmployeesCount
}

// Period is one payroll cycle for one company.
type Period struct {
	ID             int64       `json:"id"`
	CompanyID      int64       `json:"companyId"`
	Year           int         `json:"year"`
	Periodicity    Periodicity `json:"periodicity"`
	SequenceNumber int         `json:"sequenceNumber"`
	StartDate      time.Time   `json:"startDate"`
	EndDate        time.Time   `json:"endDate"`
	Label          string      `json:"label"`
	State          State       `json:"state"`
	Totals         Totals      `json:"totals"`
	Version        int64       `json:"version"`
	ClosedAt       *time.Time  `json:"closedAt,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Covers reports whether the period spans exactly [start, end].
func (p Period) Covers(start, end time.Time) bool {
	return sameDay(p.StartDate, start) && sameDay(p.EndDate, end)
}

// Overlaps applies newStart <= existingEnd AND newEnd >= existingStart.
func (p Period) Overlaps(start, end time.Time) bool {
	return !start.After(p.EndDate) && !end.Before(p.StartDate)
}

// EnsureEditable rejects ordinary edits on closed periods.
func (p Period) EnsureEditable() error {
	if !p.State.Editable() {
		return fmt.Errorf("%w: period %d is %s", ErrPeriodClosed, p.ID, p.State)
	}
	return nil
}

// CheckTransition validates moving the period to target. Leaving closed
// requires auditedReopen.
func (p Period) CheckTransition(target State, auditedReopen bool) error {
	if err := shared.ValidatePeriodTransition(string(p.State), string(target), auditedReopen); err != nil {
		return fmt.Errorf("%w: %s -> %s", err, p.State, target)
	}
	return nil
}

// SlotStatus classifies a catalog slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotClosed    SlotStatus = "closed"
	SlotToCreate  SlotStatus = "to_create"
)

// Slot is one expected period of a year, persisted or not.
type Slot struct {
	Sequence  int        `json:"sequence"`
	StartDate time.Time  `json:"startDate"`
	EndDate   time.Time  `json:"endDate"`
	Label     string     `json:"label"`
	Status    SlotStatus `json:"status"`
	Period    *Period    `json:"period,omitempty"`
}

// Action is the detector verdict for a user-chosen range.
type Action string

const (
	ActionContinue Action = "continue"
	ActionCreate   Action = "create"
	ActionConflict Action = "conflict"
)

// Proposal carries strategy-derived metadata for a period about to be created.
type Proposal struct {
	Year        int         `json:"year"`
	Periodicity Periodicity `json:"periodicity"`
	Sequence    int         `json:"sequence"`
	Label       string      `json:"label"`
	Coherent    bool        `json:"coherent"`
	Warning     string      `json:"warning,omitempty"`
}

// Detection is the result of classifying a date range.
type Detection struct {
	Action   Action    `json:"action"`
	Period   *Period   `json:"period,omitempty"`
	Conflict *Period   `json:"conflict,omitempty"`
	Proposal *Proposal `json:"proposal,omitempty"`
}

// EnsureYearResult counts the outcome of materialising a full year.
type EnsureYearResult struct {
	Year      int      `json:"year"`
	Generated int      `json:"generated"`
	Existing  int      `json:"existing"`
	Failed    int      `json:"failed"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors,omitempty"`
}

// SelectionRequest asks the service to resolve the period to work on. A
// non-zero ResumePeriodID continues that period directly.
type SelectionRequest struct {
	CompanyID      int64
	StartDate      time.Time
	EndDate        time.Time
	ResumePeriodID int64
}

// Validate ensures the request is well formed.
func (r SelectionRequest) Validate() error {
	if r.CompanyID <= 0 {
		return errors.New("period: company id required")
	}
	if r.ResumePeriodID > 0 {
		return nil
	}
	return validateRange(r.StartDate, r.EndDate)
}

// Selection is the period the caller should continue editing.
type Selection struct {
	Action   Action  `json:"action"`
	Period   Period  `json:"period"`
	Created  bool    `json:"created"`
	Warning  string  `json:"warning,omitempty"`
	Conflict *Period `json:"conflict,omitempty"`
}

// NewPeriod describes a row to insert.
type NewPeriod struct {
	CompanyID      int64
	Year           int
	Periodicity    Periodicity
	SequenceNumber int
	StartDate      time.Time
	EndDate        time.Time
	Label          string
}

var (
	ErrPeriodNotFound     = errors.New("period: not found")
	ErrPeriodClosed       = errors.New("period: closed")
	ErrPeriodConflict     = errors.New("period: overlaps an open period")
	ErrInvalidRange       = errors.New("period: invalid date range")
	ErrInvalidPeriodicity = errors.New("period: invalid periodicity")
	ErrInvalidSequence    = errors.New("period: sequence out of range")
	ErrCompanyMismatch    = errors.New("period: does not belong to company")
	ErrStaleVersion       = errors.New("period: modified concurrently")
)

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end required", ErrInvalidRange)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end before start", ErrInvalidRange)
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Date truncates t to a UTC calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
