package payroll

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType classifies a novedad.
type EventType string

const (
	EventOvertime    EventType = "overtime"
	EventBonus       EventType = "bonus"
	EventCommission  EventType = "commission"
	EventDisability  EventType = "disability"
	EventLeave       EventType = "leave"
	EventUnpaidLeave EventType = "unpaid_leave"
	EventVacation    EventType = "vacation"
	EventDeduction   EventType = "deduction"
	EventOther       EventType = "other"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventOvertime, EventBonus, EventCommission, EventDisability, EventLeave,
		EventUnpaidLeave, EventVacation, EventDeduction, EventOther:
		return true
	}
	return false
}

// Event is an ad-hoc adjustment to one employee's pay within one period.
type Event struct {
	ID                   int64           `json:"id"`
	PeriodID             int64           `json:"periodId"`
	EmployeeID           int64           `json:"employeeId"`
	Type                 EventType       `json:"type"`
	Subtype              string          `json:"subtype,omitempty"`
	Value                decimal.Decimal `json:"value"`
	Days                 int             `json:"days,omitempty"`
	Hours                decimal.Decimal `json:"hours"`
	ConstitutiveOfSalary bool            `json:"constitutiveOfSalary"`
	Folded               bool            `json:"folded"`
	CreatedAt            time.Time       `json:"createdAt"`
}

// Validate checks the fields every novedad needs before it is stored.
func (e Event) Validate() error {
	if e.EmployeeID <= 0 {
		return fmt.Errorf("%w: employee required", ErrInvalidEvent)
	}
	if !e.Type.Valid() || e.Value.IsNegative() || e.Days < 0 || e.Hours.IsNegative() {
		return fmt.Errorf("%w: type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

// Record is one employee's pay computation within one period. Net pay is
// always derived from gross and deductions.
type Record struct {
	ID                    int64           `json:"id"`
	PeriodID              int64           `json:"periodId"`
	EmployeeID            int64           `json:"employeeId"`
	BaseSalary            decimal.Decimal `json:"baseSalary"`
	WorkedDays            int             `json:"workedDays"`
	GrossPay              decimal.Decimal `json:"grossPay"`
	TotalDeductions       decimal.Decimal `json:"totalDeductions"`
	IBC                   decimal.Decimal `json:"ibc"`
	EmployerContributions decimal.Decimal `json:"employerContributions"`
	TransportAllowance    decimal.Decimal `json:"transportAllowance"`
	EventsEarnings        decimal.Decimal `json:"eventsEarnings"`
	HealthDeduction       decimal.Decimal `json:"healthDeduction"`
	PensionDeduction      decimal.Decimal `json:"pensionDeduction"`
	CalculatedAt          *time.Time      `json:"calculatedAt,omitempty"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// NetPay is gross pay minus total deductions.
func (r Record) NetPay() decimal.Decimal {
	return r.GrossPay.Sub(r.TotalDeductions)
}

// Computed reports whether the record holds a calculation result.
func (r Record) Computed() bool {
	return r.CalculatedAt != nil
}

// Apply copies a computation onto the record.
func (r *Record) Apply(c Computation, at time.Time) {
	r.GrossPay = c.GrossPay
	r.TotalDeductions = c.TotalDeductions
	r.IBC = c.IBC
	r.EmployerContributions = c.EmployerContributions
	r.TransportAllowance = c.TransportAllowance
	r.EventsEarnings = c.EventsEarnings
	r.HealthDeduction = c.HealthDeduction
	r.PensionDeduction = c.PensionDeduction
	r.CalculatedAt = &at
}

// Input is everything the calculation engine needs for one employee.
type Input struct {
	Year       int
	BaseSalary decimal.Decimal
	WorkedDays int
	Events     []Event
}

// Computation is the calculation engine output for one employee.
type Computation struct {
	GrossPay              decimal.Decimal `json:"grossPay"`
	TotalDeductions       decimal.Decimal `json:"totalDeductions"`
	NetPay                decimal.Decimal `json:"netPay"`
	IBC                   decimal.Decimal `json:"ibc"`
	ContributionBase      decimal.Decimal `json:"contributionBase"`
	EmployerContributions decimal.Decimal `json:"employerContributions"`
	ProportionalSalary    decimal.Decimal `json:"proportionalSalary"`
	TransportAllowance    decimal.Decimal `json:"transportAllowance"`
	EventsEarnings        decimal.Decimal `json:"eventsEarnings"`
	EventsDeductions      decimal.Decimal `json:"eventsDeductions"`
	HealthDeduction       decimal.Decimal `json:"healthDeduction"`
	PensionDeduction      decimal.Decimal `json:"pensionDeduction"`
}

// DraftEdit is an ordinary edit of an employee row in an open period.
type DraftEdit struct {
	PeriodID   int64           `json:"periodId" validate:"required,gt=0"`
	EmployeeID int64           `json:"employeeId" validate:"required,gt=0"`
	BaseSalary decimal.Decimal `json:"baseSalary"`
	WorkedDays int             `json:"workedDays" validate:"gte=0,lte=30"`
}

var (
	ErrInvalidSalary     = errors.New("payroll: base salary must be positive")
	ErrInvalidWorkedDays = errors.New("payroll: worked days out of range")
	ErrInvalidEvent      = errors.New("payroll: invalid event")
	ErrRecordNotFound    = errors.New("payroll: record not found")
	ErrSaveInProgress    = errors.New("payroll: another save for this period is in progress")
)
