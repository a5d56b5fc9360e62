package validation

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nomina-co/nomina/internal/payroll"
	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/platform/db"
	"github.com/nomina-co/nomina/internal/shared"
)

// ActionReopenForRepair is audited in the same transaction as the reopen.
const ActionReopenForRepair = "reopen_for_repair"

// Repository loads snapshots and applies repairs with pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadSnapshot reads the period, its records and events, and the employees
// the records reference. A missing period yields a snapshot without one.
func (r *Repository) LoadSnapshot(ctx context.Context, periodID, companyID int64) (Snapshot, error) {
	snap := Snapshot{CompanyID: companyID, Employees: map[int64]Employee{}}
	p, err := period.LoadPeriod(ctx, r.pool, periodID, false)
	if err != nil {
		if errors.Is(err, period.ErrPeriodNotFound) {
			return snap, nil
		}
		return Snapshot{}, err
	}
	snap.Period = &p
	if snap.Records, err = payroll.ListRecords(ctx, r.pool, periodID); err != nil {
		return Snapshot{}, err
	}
	if snap.Events, err = payroll.ListEvents(ctx, r.pool, periodID); err != nil {
		return Snapshot{}, err
	}
	ids := make([]int64, 0, len(snap.Records))
	for _, rec := range snap.Records {
		ids = append(ids, rec.EmployeeID)
	}
	if len(ids) == 0 {
		return snap, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, active FROM employees WHERE id = ANY($1)`, ids)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load employees: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Active); err != nil {
			return Snapshot{}, err
		}
		snap.Employees[e.ID] = e
	}
	return snap, rows.Err()
}

// Repair applies action inside its own transaction.
func (r *Repository) Repair(ctx context.Context, action RepairAction, periodID, actorID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := period.LoadPeriod(ctx, tx, periodID, true)
		if err != nil {
			return err
		}
		if action == RepairReopenPeriod {
			if p.State != period.StateClosed {
				return nil
			}
			if err := p.CheckTransition(period.StateProcessing, true); err != nil {
				return err
			}
			next, err := period.SetState(ctx, tx, p, period.StateProcessing)
			if err != nil {
				return err
			}
			return shared.InsertAudit(ctx, tx, shared.AuditLog{
				ActorID:  actorID,
				Action:   ActionReopenForRepair,
				Entity:   shared.AuditEntityPeriod,
				EntityID: strconv.FormatInt(periodID, 10),
				Meta: map[string]any{
					"previous_state": string(p.State),
					"new_state":      string(next.State),
					"reason":         "periodo cerrado sin registros calculados",
				},
			})
		}
		if err := p.EnsureEditable(); err != nil {
			return err
		}
		switch action {
		case RepairDeduplicate:
			_, err = tx.Exec(ctx, `DELETE FROM payroll_records a USING payroll_records b
WHERE a.period_id = $1 AND b.period_id = $1 AND a.employee_id = b.employee_id AND a.id > b.id`, periodID)
		case RepairRecomputeTotals:
			_, err = period.RecomputeTotals(ctx, tx, periodID)
		case RepairFillLabel:
			var strategy period.Strategy
			if strategy, err = period.StrategyFor(p.Periodicity); err == nil {
				_, err = tx.Exec(ctx, `UPDATE payroll_periods SET label = $2, updated_at = NOW() WHERE id = $1`,
					periodID, strategy.Label(p.StartDate, p.EndDate, p.SequenceNumber))
			}
		default:
			err = fmt.Errorf("%w: %s", ErrUnknownRepair, action)
		}
		return err
	})
}
