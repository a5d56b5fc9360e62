package liquidation

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nomina-co/nomina/internal/payroll"
	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/shared"
	"github.com/nomina-co/nomina/internal/validation"
)

// Status summarises a liquidation run.
type Status string

const (
	StatusNotAttempted Status = "not_attempted"
	StatusPartial      Status = "partial"
	StatusSucceeded    Status = "succeeded"
	StatusFailed       Status = "failed"
)

// Audit actions written by the service.
const (
	StepStart                 = "liquidation.start"
	StepDataLoaded            = "liquidation.data_loaded"
	StepCalculationsCompleted = "liquidation.calculations_completed"
	StepTotalsUpdated         = "liquidation.totals_updated"
	StepVouchersGenerated     = "liquidation.vouchers_generated"
	StepCompleted             = "liquidation.completed"
	StepError                 = "liquidation.error"

	ActionReopenForAdjustment  = "reopen_for_adjustment"
	ActionCloseAfterAdjustment = "close_after_adjustment"
	ActionReliquidated         = "reliquidation.completed"
	ActionReliquidationError   = "reliquidation.error"
	ActionEventsAdded          = "reliquidation.events_added"
	ActionPeriodRepaired       = "period.repaired"
)

// Scope selects which employees a reliquidation recomputes.
type Scope string

const (
	ScopeAffected Scope = "affected"
	ScopeAll      Scope = "all"
)

// CorrectionThreshold is the smallest net pay change recorded as a correction.
var CorrectionThreshold = decimal.RequireFromString("0.01")

// Input requests the liquidation of one period.
type Input struct {
	PeriodID  int64 `json:"periodId" validate:"required,gt=0"`
	CompanyID int64 `json:"companyId" validate:"required,gt=0"`
	ActorID   int64 `json:"actorId"`
}

// EmployeeError reports an employee excluded from a run.
type EmployeeError struct {
	EmployeeID int64  `json:"employeeId"`
	Message    string `json:"message"`
}

// Result is the outcome of execute_atomic_liquidation.
type Result struct {
	RunID              string             `json:"runId,omitempty"`
	Status             Status             `json:"status"`
	EmployeesProcessed int                `json:"employeesProcessed"`
	VouchersGenerated  int                `json:"vouchersGenerated"`
	Totals             period.Totals      `json:"totals"`
	Validation         *validation.Result `json:"validation,omitempty"`
	Errors             []EmployeeError    `json:"errors"`
	AuditLog           []shared.AuditLog  `json:"auditLog"`
	Message            string             `json:"message,omitempty"`
}

// Adjustment is a novedad introduced into a period by a reliquidation. It is
// the only way an event reaches a closed period.
type Adjustment struct {
	EmployeeID           int64             `json:"employeeId" validate:"required,gt=0"`
	Type                 payroll.EventType `json:"type" validate:"required"`
	Subtype              string            `json:"subtype,omitempty"`
	Value                decimal.Decimal   `json:"value"`
	Days                 int               `json:"days,omitempty" validate:"gte=0"`
	Hours                decimal.Decimal   `json:"hours"`
	ConstitutiveOfSalary bool              `json:"constitutiveOfSalary"`
}

// Event converts the adjustment into an event of periodID.
func (a Adjustment) Event(periodID int64, at time.Time) payroll.Event {
	return payroll.Event{
		PeriodID:             periodID,
		EmployeeID:           a.EmployeeID,
		Type:                 a.Type,
		Subtype:              a.Subtype,
		Value:                a.Value,
		Days:                 a.Days,
		Hours:                a.Hours,
		ConstitutiveOfSalary: a.ConstitutiveOfSalary,
		CreatedAt:            at,
	}
}

// ReliquidationInput requests an audited adjustment of a period.
type ReliquidationInput struct {
	PeriodID            int64        `json:"periodId" validate:"required,gt=0"`
	CompanyID           int64        `json:"companyId" validate:"required,gt=0"`
	AffectedEmployeeIDs []int64      `json:"affectedEmployeeIds"`
	Events              []Adjustment `json:"events" validate:"dive"`
	Justification       string       `json:"justification" validate:"required"`
	Scope               Scope        `json:"scope" validate:"omitempty,oneof=affected all"`
	RegenerateVouchers  bool         `json:"regenerateVouchers"`
	ActorID             int64        `json:"actorId"`
}

// Normalize fills defaults. An empty scope means affected when employee IDs
// or events are given and all otherwise. Employees named by events join an
// affected scope.
func (in *ReliquidationInput) Normalize() {
	if in.Scope == "" {
		in.Scope = ScopeAll
		if len(in.AffectedEmployeeIDs) > 0 || len(in.Events) > 0 {
			in.Scope = ScopeAffected
		}
	}
	if in.Scope != ScopeAffected {
		return
	}
	seen := make(map[int64]bool, len(in.AffectedEmployeeIDs))
	for _, id := range in.AffectedEmployeeIDs {
		seen[id] = true
	}
	for _, a := range in.Events {
		if !seen[a.EmployeeID] {
			seen[a.EmployeeID] = true
			in.AffectedEmployeeIDs = append(in.AffectedEmployeeIDs, a.EmployeeID)
		}
	}
}

// Check validates the combination of scope, employee IDs and events.
func (in ReliquidationInput) Check() error {
	switch {
	case in.PeriodID <= 0 || in.CompanyID <= 0:
		return ErrInvalidInput
	case in.ActorID <= 0:
		return ErrActorRequired
	case in.Justification == "":
		return ErrJustificationRequired
	case in.Scope == ScopeAffected && len(in.AffectedEmployeeIDs) == 0:
		return ErrNoAffectedEmployees
	case in.Scope != ScopeAffected && in.Scope != ScopeAll:
		return ErrInvalidInput
	}
	for _, a := range in.Events {
		if err := a.Event(in.PeriodID, time.Time{}).Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Correction is a signed change of one employee's net pay. Insert-only.
type Correction struct {
	ID            int64           `json:"id,omitempty"`
	RunID         string          `json:"runId"`
	PeriodID      int64           `json:"periodId"`
	EmployeeID    int64           `json:"employeeId"`
	PreviousValue decimal.Decimal `json:"previousValue"`
	NewValue      decimal.Decimal `json:"newValue"`
	Difference    decimal.Decimal `json:"difference"`
	Justification string          `json:"justification"`
	ActorID       int64           `json:"actorId"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ReliquidationResult is the outcome of reliquidate_period.
type ReliquidationResult struct {
	RunID               string          `json:"runId"`
	EmployeesAffected   int             `json:"employeesAffected"`
	CorrectionsApplied  int             `json:"correctionsApplied"`
	VouchersRegenerated int             `json:"vouchersRegenerated"`
	PeriodReopened      bool            `json:"periodReopened"`
	PeriodReclosed      bool            `json:"periodReclosed"`
	EventsAdded         int             `json:"eventsAdded"`
	Totals              period.Totals   `json:"totals"`
	Corrections         []Correction    `json:"corrections"`
	Errors              []EmployeeError `json:"errors"`
}

// RepairResult is the outcome of repair_period.
type RepairResult struct {
	EmployeesCount int                      `json:"employeesCount"`
	Totals         period.Totals            `json:"totals"`
	TotalsUpdated  bool                     `json:"totalsUpdated"`
	RepairLog      []validation.RepairEntry `json:"repairLog"`
	Validation     validation.Result        `json:"validation"`
}

var (
	ErrInvalidInput          = errors.New("liquidation: period and company required")
	ErrActorRequired         = errors.New("liquidation: acting user required")
	ErrAdjustmentNoRecord    = errors.New("liquidation: adjustment for an employee without a record in the period")
	ErrJustificationRequired = errors.New("liquidation: justification required")
	ErrNoAffectedEmployees   = errors.New("liquidation: affected scope requires employee ids")
	ErrNothingToLiquidate    = errors.New("liquidation: no employee could be computed")
	ErrValidationFailed      = errors.New("liquidation: pre-liquidation validation failed")
)
