package liquidation

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nomina-co/nomina/internal/payroll"
	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/platform/db"
	"github.com/nomina-co/nomina/internal/shared"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) LoadPeriod(ctx context.Context, periodID int64) (period.Period, error) {
	return period.LoadPeriod(ctx, r.pool, periodID, false)
}

func (r *repository) ListRecords(ctx context.Context, periodID int64) ([]payroll.Record, error) {
	return payroll.ListRecords(ctx, r.pool, periodID)
}

func (r *repository) ListEvents(ctx context.Context, periodID int64) ([]payroll.Event, error) {
	return payroll.ListEvents(ctx, r.pool, periodID)
}

func (r *repository) ListCorrections(ctx context.Context, periodID int64) ([]Correction, error) {
	return ListCorrections(ctx, r.pool, periodID)
}

// WithTx executes fn inside a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) LockPeriod(ctx context.Context, periodID int64) (period.Period, error) {
	return period.LoadPeriod(ctx, r.tx, periodID, true)
}

func (r *txRepository) UpdateRecord(ctx context.Context, rec payroll.Record) error {
	return payroll.UpdateComputed(ctx, r.tx, rec)
}

func (r *txRepository) ClearComputed(ctx context.Context, periodID int64, employeeIDs []int64) error {
	return payroll.ClearComputed(ctx, r.tx, periodID, employeeIDs)
}

func (r *txRepository) InsertEvent(ctx context.Context, ev payroll.Event) (payroll.Event, error) {
	return payroll.InsertEvent(ctx, r.tx, ev)
}

func (r *txRepository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.InsertAudit(ctx, r.tx, log)
}

func (r *txRepository) MarkEventsFolded(ctx context.Context, periodID int64, employeeIDs []int64) error {
	return payroll.MarkEventsFolded(ctx, r.tx, periodID, employeeIDs)
}

func (r *txRepository) RecomputeTotals(ctx context.Context, periodID int64) (period.Totals, error) {
	return period.RecomputeTotals(ctx, r.tx, periodID)
}

func (r *txRepository) SetState(ctx context.Context, p period.Period, target period.State) (period.Period, error) {
	return period.SetState(ctx, r.tx, p, target)
}

func (r *txRepository) InsertCorrection(ctx context.Context, c Correction) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO payroll_corrections
(run_id, period_id, employee_id, previous_value, new_value, difference, justification, actor_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.RunID, c.PeriodID, c.EmployeeID, c.PreviousValue, c.NewValue, c.Difference, c.Justification, c.ActorID, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert correction employee %d: %w", c.EmployeeID, err)
	}
	return nil
}

// ListCorrections returns the corrections recorded for a period.
func ListCorrections(ctx context.Context, q db.Querier, periodID int64) ([]Correction, error) {
	rows, err := q.Query(ctx, `SELECT id, run_id::text, period_id, employee_id, previous_value, new_value, difference,
justification, actor_id, created_at FROM payroll_corrections WHERE period_id = $1 ORDER BY id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	defer rows.Close()
	out := []Correction{}
	for rows.Next() {
		var c Correction
		if err := rows.Scan(&c.ID, &c.RunID, &c.PeriodID, &c.EmployeeID, &c.PreviousValue, &c.NewValue, &c.Difference,
			&c.Justification, &c.ActorID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
