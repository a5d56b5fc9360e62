package payroll

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/platform/db"
)

// RecordColumns lists payroll_records columns in ScanRecord order.
const RecordColumns = `id, period_id, employee_id, base_salary, worked_days, gross_pay, total_deductions, ibc,
employer_contributions, transport_allowance, events_earnings, health_deduction, pension_deduction, calculated_at, updated_at`

// EventColumns lists payroll_events columns in ScanEvent order.
const EventColumns = `id, period_id, employee_id, event_type, subtype, value, days, hours, constitutive, folded, created_at`

// ScanRecord reads one row selected with RecordColumns.
func ScanRecord(row pgx.Row) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.PeriodID, &r.EmployeeID, &r.BaseSalary, &r.WorkedDays, &r.GrossPay, &r.TotalDeductions, &r.IBC,
		&r.EmployerContributions, &r.TransportAllowance, &r.EventsEarnings, &r.HealthDeduction, &r.PensionDeduction, &r.CalculatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return r, err
}

// ScanEvent reads one row selected with EventColumns.
func ScanEvent(row pgx.Row) (Event, error) {
	var (
		e   Event
		typ string
	)
	if err := row.Scan(&e.ID, &e.PeriodID, &e.EmployeeID, &typ, &e.Subtype, &e.Value, &e.Days, &e.Hours, &e.ConstitutiveOfSalary, &e.Folded, &e.CreatedAt); err != nil {
		return Event{}, err
	}
	e.Type = EventType(typ)
	return e, nil
}

// ListRecords returns every record attached to a period ordered by employee.
func ListRecords(ctx context.Context, q db.Querier, periodID int64) ([]Record, error) {
	rows, err := q.Query(ctx, `SELECT `+RecordColumns+` FROM payroll_records WHERE period_id = $1 ORDER BY employee_id, id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		r, err := ScanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListEvents returns every event attached to a period.
func ListEvents(ctx context.Context, q db.Querier, periodID int64) ([]Event, error) {
	rows, err := q.Query(ctx, `SELECT `+EventColumns+` FROM payroll_events WHERE period_id = $1 ORDER BY employee_id, id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		e, err := ScanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateComputed writes the calculated fields of a record by id.
func UpdateComputed(ctx context.Context, q db.Querier, r Record) error {
	tag, err := q.Exec(ctx, `UPDATE payroll_records SET gross_pay = $2, total_deductions = $3, ibc = $4,
employer_contributions = $5, transport_allowance = $6, events_earnings = $7, health_deduction = $8,
pension_deduction = $9, calculated_at = $10, updated_at = NOW() WHERE id = $1`,
		r.ID, r.GrossPay, r.TotalDeductions, r.IBC, r.EmployerContributions, r.TransportAllowance,
		r.EventsEarnings, r.HealthDeduction, r.PensionDeduction, r.CalculatedAt)
	if err != nil {
		return fmt.Errorf("update record %d: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update record %d: %w", r.ID, ErrRecordNotFound)
	}
	return nil
}

// MarkEventsFolded flags the events of the given employees as included in
// the stored computation.
func MarkEventsFolded(ctx context.Context, q db.Querier, periodID int64, employeeIDs []int64) error {
	if len(employeeIDs) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `UPDATE payroll_events SET folded = TRUE WHERE period_id = $1 AND employee_id = ANY($2)`, periodID, employeeIDs)
	if err != nil {
		return fmt.Errorf("fold events: %w", err)
	}
	return nil
}

// ClearComputed drops the stored computation of the given employees so they
// no longer count towards the period totals.
func ClearComputed(ctx context.Context, q db.Querier, periodID int64, employeeIDs []int64) error {
	if len(employeeIDs) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `UPDATE payroll_records SET gross_pay = 0, total_deductions = 0, ibc = 0,
employer_contributions = 0, transport_allowance = 0, events_earnings = 0, health_deduction = 0,
pension_deduction = 0, calculated_at = NULL, updated_at = NOW()
WHERE period_id = $1 AND employee_id = ANY($2)`, periodID, employeeIDs)
	if err != nil {
		return fmt.Errorf("clear computed records: %w", err)
	}
	return nil
}

// InsertEvent stores a novedad. Callers check the period state.
func InsertEvent(ctx context.Context, q db.Querier, ev Event) (Event, error) {
	out, err := ScanEvent(q.QueryRow(ctx, `INSERT INTO payroll_events
(period_id, employee_id, event_type, subtype, value, days, hours, constitutive, folded)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING `+EventColumns,
		ev.PeriodID, ev.EmployeeID, string(ev.Type), ev.Subtype, ev.Value, ev.Days, ev.Hours, ev.ConstitutiveOfSalary, ev.Folded))
	if err != nil {
		return Event{}, fmt.Errorf("insert event employee %d: %w", ev.EmployeeID, err)
	}
	return out, nil
}

// Repository persists draft edits through ordinary, non-liquidation paths.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadPeriod returns the period an edit targets.
func (r *Repository) LoadPeriod(ctx context.Context, periodID int64) (period.Period, error) {
	return period.LoadPeriod(ctx, r.pool, periodID, false)
}

// SaveDraft upserts the employee row while holding the period row lock.
func (r *Repository) SaveDraft(ctx context.Context, edit DraftEdit) (Record, error) {
	var rec Record
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := period.LoadPeriod(ctx, tx, edit.PeriodID, true)
		if err != nil {
			return err
		}
		if err := p.EnsureEditable(); err != nil {
			return err
		}
		rec, err = ScanRecord(tx.QueryRow(ctx, `UPDATE payroll_records SET base_salary = $3, worked_days = $4,
calculated_at = NULL, updated_at = NOW()
WHERE id = (SELECT id FROM payroll_records WHERE period_id = $1 AND employee_id = $2 ORDER BY id LIMIT 1)
RETURNING `+RecordColumns, edit.PeriodID, edit.EmployeeID, edit.BaseSalary, edit.WorkedDays))
		if !errors.Is(err, ErrRecordNotFound) {
			return err
		}
		rec, err = ScanRecord(tx.QueryRow(ctx, `INSERT INTO payroll_records (period_id, employee_id, base_salary, worked_days)
VALUES ($1, $2, $3, $4) RETURNING `+RecordColumns, edit.PeriodID, edit.EmployeeID, edit.BaseSalary, edit.WorkedDays))
		return err
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// AddEvent attaches a novedad to an editable period.
func (r *Repository) AddEvent(ctx context.Context, ev Event) (Event, error) {
	var out Event
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := period.LoadPeriod(ctx, tx, ev.PeriodID, true)
		if err != nil {
			return err
		}
		if err := p.EnsureEditable(); err != nil {
			return err
		}
		ev.Folded = false
		out, err = InsertEvent(ctx, tx, ev)
		return err
	})
	if err != nil {
		return Event{}, err
	}
	return out, nil
}
