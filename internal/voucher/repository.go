package voucher

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nomina-co/nomina/internal/payroll"
)

const voucherColumns = `id, period_id, employee_id, status, file_path, error, created_at, updated_at`

// Repository stores vouchers in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanVoucher(row pgx.Row) (Voucher, error) {
	var (
		v      Voucher
		status string
	)
	if err := row.Scan(&v.ID, &v.PeriodID, &v.EmployeeID, &status, &v.FilePath, &v.Error, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrVoucherNotFound
		}
		return Voucher{}, err
	}
	v.Status = Status(status)
	return v, nil
}

// CreatePending inserts a pending voucher.
func (r *Repository) CreatePending(ctx context.Context, periodID, employeeID int64) (Voucher, error) {
	return scanVoucher(r.pool.QueryRow(ctx, `INSERT INTO payroll_vouchers (period_id, employee_id, status)
VALUES ($1, $2, 'pending') RETURNING `+voucherColumns, periodID, employeeID))
}

// Supersede marks every non-superseded voucher of the employees as superseded.
func (r *Repository) Supersede(ctx context.Context, periodID int64, employeeIDs []int64) (int, error) {
	if len(employeeIDs) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `UPDATE payroll_vouchers SET status = 'superseded', updated_at = NOW()
WHERE period_id = $1 AND employee_id = ANY($2) AND status <> 'superseded'`, periodID, employeeIDs)
	if err != nil {
		return 0, fmt.Errorf("supersede vouchers: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// MarkGenerated stores the rendered file path.
func (r *Repository) MarkGenerated(ctx context.Context, id int64, path string) error {
	return r.setStatus(ctx, id, StatusGenerated, path, "")
}

// MarkFailed stores the failure reason.
func (r *Repository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.setStatus(ctx, id, StatusFailed, "", reason)
}

// A superseded voucher keeps its status when a late job finishes.
func (r *Repository) setStatus(ctx context.Context, id int64, status Status, path, reason string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE payroll_vouchers SET status = $2, file_path = $3, error = $4, updated_at = NOW()
WHERE id = $1 AND status <> 'superseded'`, id, string(status), path, reason)
	if err != nil {
		return fmt.Errorf("update voucher %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update voucher %d: %w", id, ErrSuperseded)
	}
	return nil
}

// LoadDocument joins the voucher with its period, company, employee and record.
func (r *Repository) LoadDocument(ctx context.Context, id int64) (Document, error) {
	var (
		doc    Document
		status string
	)
	row := r.pool.QueryRow(ctx, `SELECT v.id, v.status, p.id, p.label, p.start_date, p.end_date,
c.name, c.tax_id, e.id, e.full_name, e.document_number
FROM payroll_vouchers v
JOIN payroll_periods p ON p.id = v.period_id
JOIN companies c ON c.id = p.company_id
JOIN employees e ON e.id = v.employee_id
WHERE v.id = $1`, id)
	err := row.Scan(&doc.VoucherID, &status, &doc.PeriodID, &doc.PeriodLabel, &doc.StartDate, &doc.EndDate,
		&doc.CompanyName, &doc.CompanyTaxID, &doc.EmployeeID, &doc.EmployeeName, &doc.DocumentNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrVoucherNotFound
		}
		return Document{}, err
	}
	doc.Status = Status(status)
	doc.Record, err = payroll.ScanRecord(r.pool.QueryRow(ctx, `SELECT `+payroll.RecordColumns+`
FROM payroll_records WHERE period_id = $1 AND employee_id = $2 ORDER BY id LIMIT 1`, doc.PeriodID, doc.EmployeeID))
	if err != nil {
		return Document{}, fmt.Errorf("voucher %d record: %w", id, err)
	}
	return doc, nil
}

// ListByPeriod returns every voucher of a period, newest first.
func (r *Repository) ListByPeriod(ctx context.Context, periodID int64) ([]Voucher, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+voucherColumns+` FROM payroll_vouchers WHERE period_id = $1
ORDER BY employee_id, id DESC`, periodID)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()
	out := []Voucher{}
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
