package payroll

import "github.com/shopspring/decimal"

type yearlyFigures struct {
	minimumWage        decimal.Decimal
	transportAllowance decimal.Decimal
}

var statutoryFigures = map[int]yearlyFigures{
	2023: {decimal.NewFromInt(1_160_000), decimal.NewFromInt(140_606)},
	2024: {decimal.NewFromInt(1_300_000), decimal.NewFromInt(162_000)},
	2025: {decimal.NewFromInt(1_423_500), decimal.NewFromInt(200_000)},
}

const (
	firstKnownYear = 2023
	lastKnownYear  = 2025
)

func figuresFor(year int) yearlyFigures {
	switch {
	case year < firstKnownYear:
		year = firstKnownYear
	case year > lastKnownYear:
		year = lastKnownYear
	}
	return statutoryFigures[year]
}

// MinimumWage returns the SMMLV for year, clamped to the known table.
func MinimumWage(year int) decimal.Decimal {
	return figuresFor(year).minimumWage
}

// TransportAllowance returns the monthly auxilio de transporte for year.
func TransportAllowance(year int) decimal.Decimal {
	return figuresFor(year).transportAllowance
}
