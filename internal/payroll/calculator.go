package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rates holds statutory contribution percentages expressed as fractions.
type Rates struct {
	EmployeeHealth   decimal.Decimal
	EmployeePension  decimal.Decimal
	EmployerHealth   decimal.Decimal
	EmployerPension  decimal.Decimal
	ARL              decimal.Decimal
	CompensationFund decimal.Decimal
}

// DefaultRates returns the general-regime rates (ARL risk class I).
func DefaultRates() Rates {
	return Rates{
		EmployeeHealth:   decimal.RequireFromString("0.04"),
		EmployeePension:  decimal.RequireFromString("0.04"),
		EmployerHealth:   decimal.RequireFromString("0.085"),
		EmployerPension:  decimal.RequireFromString("0.12"),
		ARL:              decimal.RequireFromString("0.00522"),
		CompensationFund: decimal.RequireFromString("0.04"),
	}
}

func (r Rates) employerTotal() decimal.Decimal {
	return r.EmployerHealth.Add(r.EmployerPension).Add(r.ARL).Add(r.CompensationFund)
}

var (
	commercialMonth = decimal.NewFromInt(30)
	maxIBCFactor    = decimal.NewFromInt(25)
	transportCap    = decimal.NewFromInt(2)
)

// Calculator computes one employee's pay. It holds no state besides rates
// and is safe for concurrent use.
type Calculator struct {
	rates Rates
}

// NewCalculator constructs a Calculator with the default rates.
func NewCalculator() *Calculator {
	return &Calculator{rates: DefaultRates()}
}

// WithRates overrides the contribution rates.
func (c *Calculator) WithRates(r Rates) *Calculator {
	return &Calculator{rates: r}
}

// Calculate folds events into the pay of one employee for one period. The
// IBC is clamped to [1, 25] SMMLV of the period year and prorated over the
// worked days of a 30-day month.
func (c *Calculator) Calculate(in Input) (Computation, error) {
	if !in.BaseSalary.IsPositive() {
		return Computation{}, ErrInvalidSalary
	}
	if in.WorkedDays < 0 || in.WorkedDays > 30 {
		return Computation{}, fmt.Errorf("%w: %d", ErrInvalidWorkedDays, in.WorkedDays)
	}

	var earnings, deductions, constitutive decimal.Decimal
	for _, ev := range in.Events {
		if !ev.Type.Valid() || ev.Value.IsNegative() {
			return Computation{}, fmt.Errorf("%w: event %d type %q value %s", ErrInvalidEvent, ev.ID, ev.Type, ev.Value)
		}
		switch ev.Type {
		case EventDeduction, EventUnpaidLeave:
			deductions = deductions.Add(ev.Value)
		default:
			earnings = earnings.Add(ev.Value)
			if ev.ConstitutiveOfSalary {
				constitutive = constitutive.Add(ev.Value)
			}
		}
	}

	smmlv := MinimumWage(in.Year)
	days := decimal.NewFromInt(int64(in.WorkedDays))
	prorate := func(v decimal.Decimal) decimal.Decimal {
		return v.Mul(days).Div(commercialMonth).Round(0)
	}

	ibc := clamp(in.BaseSalary.Add(constitutive), smmlv, smmlv.Mul(maxIBCFactor))
	base := prorate(ibc)

	out := Computation{
		IBC:                ibc,
		ContributionBase:   base,
		ProportionalSalary: prorate(in.BaseSalary),
		EventsEarnings:     earnings,
		EventsDeductions:   deductions,
		HealthDeduction:    base.Mul(c.rates.EmployeeHealth).Round(0),
		PensionDeduction:   base.Mul(c.rates.EmployeePension).Round(0),
	}
	if in.BaseSalary.LessThanOrEqual(smmlv.Mul(transportCap)) {
		out.TransportAllowance = prorate(TransportAllowance(in.Year))
	}
	out.EmployerContributions = base.Mul(c.rates.employerTotal()).Round(0)
	out.GrossPay = out.ProportionalSalary.Add(out.EventsEarnings).Add(out.TransportAllowance)
	out.TotalDeductions = out.HealthDeduction.Add(out.PensionDeduction).Add(out.EventsDeductions)
	out.NetPay = out.GrossPay.Sub(out.TotalDeductions)
	return out, nil
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
