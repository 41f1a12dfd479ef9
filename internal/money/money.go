// Package money implements the monetary arithmetic used across the POS:
// tax amounts, tax-inclusive totals, discounts and change. All values are
// exact decimals; binary floating point is never used for money.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Tax returns the tax amount for the given net amount and percentage rate.
// A zero rate always yields exactly zero.
func Tax(amount, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(rate).Div(hundred)
}

// Gross returns the tax-inclusive total for the given net amount and rate.
func Gross(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Add(Tax(amount, rate))
}

// LineTax returns the tax amount for a quantity of units at a unit price.
func LineTax(unitPrice decimal.Decimal, qty int, rate decimal.Decimal) decimal.Decimal {
	return Tax(unitPrice.Mul(decimal.NewFromInt(int64(qty))), rate)
}

// LineGross returns the tax-inclusive total for a quantity of units.
func LineGross(unitPrice decimal.Decimal, qty int, rate decimal.Decimal) decimal.Decimal {
	return Gross(unitPrice.Mul(decimal.NewFromInt(int64(qty))), rate)
}

// Discount applies a percentage discount to the amount.
func Discount(amount, percent decimal.Decimal) decimal.Decimal {
	if percent.IsZero() {
		return amount
	}
	return amount.Mul(decimal.NewFromInt(1).Sub(percent.Div(hundred)))
}

// Change returns the change owed when paid exceeds due, never negative.
func Change(paid, due decimal.Decimal) decimal.Decimal {
	diff := paid.Sub(due)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

// LoyaltyPoints converts a purchase total into loyalty points, one point
// per 100 spent, fractions discarded.
func LoyaltyPoints(total decimal.Decimal) int {
	return int(total.Div(hundred).IntPart())
}
