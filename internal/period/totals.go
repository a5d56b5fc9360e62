package period

import (
	"context"
	"errors"
	"fmt"

	"github.com/nomina-co/nomina/internal/platform/db"
)

// RecomputeTotals rewrites the stored totals of a period from its computed
// records and returns them.
func RecomputeTotals(ctx context.Context, q db.Querier, periodID int64) (Totals, error) {
	var t Totals
	err := q.QueryRow(ctx, `UPDATE payroll_periods p SET
total_gross = agg.gross, total_deductions = agg.deductions, total_net = agg.gross - agg.deductions,
employees_count = agg.employees, updated_at = NOW()
FROM (
	SELECT COALESCE(SUM(gross_pay), 0) AS gross, COALESCE(SUM(total_deductions), 0) AS deductions,
	COUNT(DISTINCT employee_id) AS employees
	FROM payroll_records WHERE period_id = $1 AND calculated_at IS NOT NULL
) agg
WHERE p.id = $1
RETURNING p.total_gross, p.total_deductions, p.total_net, p.employees_count`, periodID).
		Scan(&t.Gross, &t.Deductions, &t.Net, &t.EmployeesCount)
	if err != nil {
		return Totals{}, fmt.Errorf("recompute totals %d: %w", periodID, err)
	}
	return t, nil
}

// SetState moves a period to target when its version still matches, bumping
// the version. Callers validate the transition beforehand.
func SetState(ctx context.Context, q db.Querier, p Period, target State) (Period, error) {
	closedAt := "closed_at"
	if target == StateClosed {
		closedAt = "NOW()"
	}
	next, err := ScanPeriod(q.QueryRow(ctx, `UPDATE payroll_periods SET state = $3, version = version + 1,
closed_at = `+closedAt+`, updated_at = NOW()
WHERE id = $1 AND version = $2 RETURNING `+PeriodColumns, p.ID, p.Version, string(target)))
	if err != nil {
		if errors.Is(err, ErrPeriodNotFound) {
			return Period{}, fmt.Errorf("%w: period %d version %d", ErrStaleVersion, p.ID, p.Version)
		}
		return Period{}, err
	}
	return next, nil
}
