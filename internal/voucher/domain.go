package voucher

import (
	"errors"
	"time"

	"github.com/nomina-co/nomina/internal/payroll"
)

// Status tracks a voucher through generation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerated  Status = "generated"
	StatusFailed     Status = "failed"
	StatusSuperseded Status = "superseded"
)

// Voucher is the pay stub of one employee for one period.
type Voucher struct {
	ID         int64     `json:"id"`
	PeriodID   int64     `json:"periodId"`
	EmployeeID int64     `json:"employeeId"`
	Status     Status    `json:"status"`
	FilePath   string    `json:"filePath,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Document gathers what a rendered voucher shows.
type Document struct {
	VoucherID      int64
	Status         Status
	PeriodID       int64
	PeriodLabel    string
	StartDate      time.Time
	EndDate        time.Time
	CompanyName    string
	CompanyTaxID   string
	EmployeeID     int64
	EmployeeName   string
	DocumentNumber string
	Record         payroll.Record
}

var (
	ErrVoucherNotFound = errors.New("voucher: not found")
	ErrSuperseded      = errors.New("voucher: superseded")
)
