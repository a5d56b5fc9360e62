package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
)

func BenchmarkCalculate(b *testing.B) {
	calc := NewCalculator()
	in := Input{
		Year:       2025,
		BaseSalary: decimal.NewFromInt(3000000),
		WorkedDays: 15,
		Events: []Event{
			{Type: EventOvertime, Value: decimal.NewFromInt(85000), ConstitutiveOfSalary: true},
			{Type: EventBonus, Value: decimal.NewFromInt(100000)},
			{Type: EventDeduction, Value: decimal.NewFromInt(50000)},
		},
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := calc.Calculate(in); err != nil {
			b.Fatal(err)
		}
	}
}
