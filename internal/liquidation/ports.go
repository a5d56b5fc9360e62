package liquidation

import (
	"context"
	"time"

	"github.com/nomina-co/nomina/internal/payroll"
	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/shared"
	"github.com/nomina-co/nomina/internal/validation"
)

// Repository reads liquidation inputs and opens write transactions.
type Repository interface {
	LoadPeriod(ctx context.Context, periodID int64) (period.Period, error)
	ListRecords(ctx context.Context, periodID int64) ([]payroll.Record, error)
	ListEvents(ctx context.Context, periodID int64) ([]payroll.Event, error)
	ListCorrections(ctx context.Context, periodID int64) ([]Correction, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the writes performed inside one transaction.
type TxRepository interface {
	LockPeriod(ctx context.Context, periodID int64) (period.Period, error)
	UpdateRecord(ctx context.Context, r payroll.Record) error
	ClearComputed(ctx context.Context, periodID int64, employeeIDs []int64) error
	InsertEvent(ctx context.Context, ev payroll.Event) (payroll.Event, error)
	MarkEventsFolded(ctx context.Context, periodID int64, employeeIDs []int64) error
	RecomputeTotals(ctx context.Context, periodID int64) (period.Totals, error)
	SetState(ctx context.Context, p period.Period, target period.State) (period.Period, error)
	InsertCorrection(ctx context.Context, c Correction) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// Validator gates liquidation and runs auto-repairs.
type Validator interface {
	Validate(ctx context.Context, periodID, companyID int64) (validation.Result, error)
	Repair(ctx context.Context, periodID, companyID, actorID int64) (validation.RepairOutcome, error)
}

// Calculator computes one employee.
type Calculator interface {
	Calculate(in payroll.Input) (payroll.Computation, error)
}

// VoucherDispatcher schedules voucher generation after commit.
type VoucherDispatcher interface {
	Dispatch(ctx context.Context, periodID int64, employeeIDs []int64) (int, error)
	Supersede(ctx context.Context, periodID int64, employeeIDs []int64) (int, error)
}

// Locker grants the per-period exclusive lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*shared.Lock, error)
}

// AuditPort appends and reads the period audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
	List(ctx context.Context, entity, entityID string) ([]shared.AuditLog, error)
}
