// Package profit projects monthly short-term-rental profit for a property.
package profit

import "github.com/shopspring/decimal"

const nightsPerMonth = 30

var (
	Occupancy50  = decimal.RequireFromString("0.5")
	Occupancy70  = decimal.RequireFromString("0.7")
	Occupancy100 = decimal.NewFromInt(1)
)

// Profit returns gross - fees - rent - bills for one month at the given
// occupancy, truncated toward zero.
func Profit(rent int, bills, nightlyRate, occupancy, feeRate float64) int {
	return profitAt(rent, bills, nightlyRate, decimal.NewFromFloat(occupancy), feeRate)
}

type Scenarios struct {
	At50  int
	At70  int
	At100 int
}

// Project evaluates Profit at 50%, 70% and 100% occupancy.
func Project(rent int, bills, nightlyRate, feeRate float64) Scenarios {
	return Scenarios{
		At50:  profitAt(rent, bills, nightlyRate, Occupancy50, feeRate),
		At70:  profitAt(rent, bills, nightlyRate, Occupancy70, feeRate),
		At100: profitAt(rent, bills, nightlyRate, Occupancy100, feeRate),
	}
}

func profitAt(rent int, bills, nightlyRate float64, occupancy decimal.Decimal, feeRate float64) int {
	gross := decimal.NewFromFloat(nightlyRate).
		Mul(decimal.NewFromInt(nightsPerMonth)).
		Mul(occupancy)
	fees := gross.Mul(decimal.NewFromFloat(feeRate))
	p := gross.Sub(fees).
		Sub(decimal.NewFromInt(int64(rent))).
		Sub(decimal.NewFromFloat(bills))
	return int(p.Truncate(0).IntPart())
}
