// Package money provides a fixed-point monetary amount paired with an
// ISO 4217 currency code, backed by github.com/shopspring/decimal so
// arithmetic never drifts onto floating point.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal value tagged with its currency. The zero Amount is
// zero in an empty currency and should not be compared against real
// amounts without checking Currency first.
type Amount struct {
	Value    decimal.Decimal
	Currency string
}

// New builds an Amount from a decimal value and currency code. The
// currency is upper-cased per spec: currency codes are always uppercase.
func New(v decimal.Decimal, currency string) Amount {
	return Amount{Value: v, Currency: strings.ToUpper(currency)}
}

// Parse parses a decimal string and currency code into an Amount.
func Parse(s, currency string) (Amount, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return New(v, currency), nil
}

// Equal reports whether two amounts carry the same currency and numeric
// value (decimal.Equal, not string equality, so "1.50" == "1.5").
func (a Amount) Equal(b Amount) bool {
	return a.Currency == b.Currency && a.Value.Equal(b.Value)
}

// Sign returns -1, 0 or 1 following the sign of the amount's value.
func (a Amount) Sign() int { return a.Value.Sign() }

// Neg returns the amount with its sign flipped, currency unchanged.
func (a Amount) Neg() Amount { return Amount{Value: a.Value.Neg(), Currency: a.Currency} }

// AbsDiff returns the absolute difference between two amounts' values,
// ignoring currency. Callers that care about FX must compare Currency
// themselves first.
func AbsDiff(a, b Amount) decimal.Decimal {
	return a.Value.Sub(b.Value).Abs()
}

// WithinTolerance reports whether the absolute values of a and b differ
// by no more than tolerance (an absolute decimal amount, not a ratio).
func WithinTolerance(a, b Amount, tolerance decimal.Decimal) bool {
	return a.Value.Abs().Sub(b.Value.Abs()).Abs().LessThanOrEqual(tolerance)
}

// WithinPercent reports whether the absolute values of a and b differ by
// no more than pct percent of the larger of the two (used for the
// amount-mismatch-fx suspected-transfer reason).
func WithinPercent(a, b Amount, pct decimal.Decimal) bool {
	av, bv := a.Value.Abs(), b.Value.Abs()
	base := av
	if bv.GreaterThan(base) {
		base = bv
	}
	if base.IsZero() {
		return av.Equal(bv)
	}
	diff := av.Sub(bv).Abs()
	limit := base.Mul(pct).Div(decimal.NewFromInt(100))
	return diff.LessThanOrEqual(limit)
}

// String renders the amount as "<value> <CURRENCY>".
func (a Amount) String() string {
	return a.Value.StringFixed(2) + " " + a.Currency
}
