package period

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nomina-co/nomina/internal/platform/db"
)

// PeriodColumns lists payroll_periods columns in ScanPeriod order.
const PeriodColumns = `id, company_id, year, periodicity, sequence_number, start_date, end_date, label, state,
total_gross, total_deductions, total_net, employees_count, version, closed_at, created_at, updated_at`

// ErrCompanyNotFound indicates the company row is missing.
var ErrCompanyNotFound = errors.New("period: company not found")

// Repository is the pgx backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ScanPeriod reads one row selected with PeriodColumns.
func ScanPeriod(row pgx.Row) (Period, error) {
	var (
		p           Period
		periodicity string
		state       string
	)
	err := row.Scan(&p.ID, &p.CompanyID, &p.Year, &periodicity, &p.SequenceNumber, &p.StartDate, &p.EndDate, &p.Label, &state,
		&p.Totals.Gross, &p.Totals.Deductions, &p.Totals.Net, &p.Totals.EmployeesCount, &p.Version, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, err
	}
	p.Periodicity = Periodicity(periodicity)
	p.State = State(state)
	return p, nil
}

// LoadPeriod fetches a period by id.
func (r *Repository) LoadPeriod(ctx context.Context, id int64) (Period, error) {
	return LoadPeriod(ctx, r.pool, id, false)
}

// LoadPeriod fetches a period through q, locking the row when forUpdate is set.
func LoadPeriod(ctx context.Context, q db.Querier, id int64, forUpdate bool) (Period, error) {
	sql := `SELECT ` + PeriodColumns + ` FROM payroll_periods WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	p, err := ScanPeriod(q.QueryRow(ctx, sql, id))
	if err != nil {
		return Period{}, fmt.Errorf("load period %d: %w", id, err)
	}
	return p, nil
}

// ListYear returns persisted periods of one periodicity and year.
func (r *Repository) ListYear(ctx context.Context, companyID int64, periodicity Periodicity, year int) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+PeriodColumns+` FROM payroll_periods
WHERE company_id = $1 AND periodicity = $2 AND year = $3 ORDER BY sequence_number`, companyID, string(periodicity), year)
	if err != nil {
		return nil, err
	}
	return collectPeriods(rows)
}

// ListOverlapping returns every period of the company intersecting [start, end].
func (r *Repository) ListOverlapping(ctx context.Context, companyID int64, start, end time.Time) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+PeriodColumns+` FROM payroll_periods
WHERE company_id = $1 AND start_date <= $3 AND end_date >= $2 ORDER BY start_date`, companyID, start, end)
	if err != nil {
		return nil, err
	}
	return collectPeriods(rows)
}

// InsertPeriod inserts keyed on the slot unique constraint; a concurrent or
// repeated insert returns the existing row. The statements run outside a
// repeatable-read snapshot so the follow-up read sees the winning row.
func (r *Repository) InsertPeriod(ctx context.Context, in NewPeriod) (Period, bool, error) {
	p, err := ScanPeriod(r.pool.QueryRow(ctx, `INSERT INTO payroll_periods
(company_id, year, periodicity, sequence_number, start_date, end_date, label, state)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (company_id, year, periodicity, sequence_number) DO NOTHING
RETURNING `+PeriodColumns,
		in.CompanyID, in.Year, string(in.Periodicity), in.SequenceNumber, in.StartDate, in.EndDate, in.Label, string(StateDraft)))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, ErrPeriodNotFound) {
		return Period{}, false, fmt.Errorf("insert period slot %d: %w", in.SequenceNumber, err)
	}
	p, err = ScanPeriod(r.pool.QueryRow(ctx, `SELECT `+PeriodColumns+` FROM payroll_periods
WHERE company_id = $1 AND year = $2 AND periodicity = $3 AND sequence_number = $4`,
		in.CompanyID, in.Year, string(in.Periodicity), in.SequenceNumber))
	if err != nil {
		return Period{}, false, fmt.Errorf("load period slot %d: %w", in.SequenceNumber, err)
	}
	return p, false, nil
}

// CompanyPeriodicity returns the company's configured periodicity.
func (r *Repository) CompanyPeriodicity(ctx context.Context, companyID int64) (Periodicity, error) {
	var raw string
	err := r.pool.QueryRow(ctx, `SELECT periodicity FROM companies WHERE id = $1`, companyID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrCompanyNotFound
		}
		return "", err
	}
	if raw == "" {
		return "", nil
	}
	return ParsePeriodicity(raw)
}

// ListActiveCompanies returns ids of companies with payroll enabled.
func (r *Repository) ListActiveCompanies(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM companies WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func collectPeriods(rows pgx.Rows) ([]Period, error) {
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := ScanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
