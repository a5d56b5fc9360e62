package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestIBCClampedToTwentyFiveMinimumWages(t *testing.T) {
	out, err := NewCalculator().Calculate(Input{Year: 2025, BaseSalary: dec(40_000_000), WorkedDays: 30})
	require.NoError(t, err)
	assert.True(t, out.IBC.Equal(dec(35_587_500)), "ibc %s", out.IBC)
	assert.True(t, out.TransportAllowance.IsZero())
}

func TestIBCFloorIsOneMinimumWage(t *testing.T) {
	out, err := NewCalculator().Calculate(Input{Year: 2025, BaseSalary: dec(800_000), WorkedDays: 30})
	require.NoError(t, err)
	assert.True(t, out.IBC.Equal(dec(1_423_500)), "ibc %s", out.IBC)
}

func TestConstitutiveEventsFeedIBC(t *testing.T) {
	out, err := NewCalculator().Calculate(Input{
		Year:       2025,
		BaseSalary: dec(3_000_000),
		WorkedDays: 30,
		Events: []Event{
			{Type: EventOvertime, Value: dec(500_000), ConstitutiveOfSalary: true},
			{Type: EventBonus, Value: dec(200_000)},
			{Type: EventDeduction, Value: dec(50_000)},
		},
	})
	require.NoError(t, err)
	assert.True(t, out.IBC.Equal(dec(3_500_000)))
	assert.True(t, out.EventsEarnings.Equal(dec(700_000)))
	assert.True(t, out.GrossPay.Equal(dec(3_700_000)))
	// 4% health + 4% pension over 3.5M plus the deduction event.
	assert.True(t, out.TotalDeductions.Equal(dec(330_000)), "deductions %s", out.TotalDeductions)
	assert.True(t, out.NetPay.Equal(out.GrossPay.Sub(out.TotalDeductions)))
}

func TestBiweeklyMinimumWageEmployee(t *testing.T) {
	out, err := NewCalculator().Calculate(Input{Year: 2025, BaseSalary: dec(1_423_500), WorkedDays: 15})
	require.NoError(t, err)

	assert.True(t, out.ProportionalSalary.Equal(dec(711_750)))
	assert.True(t, out.TransportAllowance.Equal(dec(100_000)))
	assert.True(t, out.GrossPay.Equal(dec(811_750)))
	assert.True(t, out.HealthDeduction.Equal(dec(28_470)))
	assert.True(t, out.PensionDeduction.Equal(dec(28_470)))
	assert.True(t, out.TotalDeductions.Equal(dec(56_940)))
	assert.True(t, out.NetPay.Equal(dec(754_810)))
	assert.True(t, out.NetPay.LessThan(out.GrossPay))
	assert.True(t, out.EmployerContributions.Equal(dec(178_094)), "employer %s", out.EmployerContributions)
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	calc := NewCalculator()

	_, err := calc.Calculate(Input{Year: 2025, BaseSalary: decimal.Zero, WorkedDays: 15})
	assert.ErrorIs(t, err, ErrInvalidSalary)

	_, err = calc.Calculate(Input{Year: 2025, BaseSalary: dec(1_500_000), WorkedDays: 31})
	assert.ErrorIs(t, err, ErrInvalidWorkedDays)

	_, err = calc.Calculate(Input{Year: 2025, BaseSalary: dec(1_500_000), WorkedDays: 15,
		Events: []Event{{Type: "lottery", Value: dec(1)}}})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = calc.Calculate(Input{Year: 2025, BaseSalary: dec(1_500_000), WorkedDays: 15,
		Events: []Event{{Type: EventBonus, Value: dec(-1)}}})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestStatutoryTableFallsBackToNearestKnownYear(t *testing.T) {
	assert.True(t, MinimumWage(2024).Equal(dec(1_300_000)))
	assert.True(t, MinimumWage(2019).Equal(dec(1_160_000)))
	assert.True(t, MinimumWage(2030).Equal(dec(1_423_500)))
	assert.True(t, TransportAllowance(2025).Equal(dec(200_000)))
}

func TestRecordNetPayIsDerived(t *testing.T) {
	r := Record{GrossPay: dec(1_000), TotalDeductions: dec(80)}
	assert.True(t, r.NetPay().Equal(dec(920)))
	assert.False(t, r.Computed())
}
