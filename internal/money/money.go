// Package money provides the currency-tagged decimal amount used by settlement and reporting.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultMinorUnits is applied to codes unknown to the ISO 4217 table.
const DefaultMinorUnits int32 = 2

// ErrCurrencyMismatch is returned when arithmetic mixes two currencies.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money is an amount tagged with its currency code.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"codeCurrency"`
}

// New builds a Money value, normalising the currency code.
func New(amount decimal.Decimal, code string) Money {
	return Money{Amount: amount, Currency: NormalizeCode(code)}
}

// FromFloat builds a Money value from a float amount.
func FromFloat(amount float64, code string) Money {
	return New(decimal.NewFromFloat(amount), code)
}

// Zero returns a zero amount in the given currency.
func Zero(code string) Money {
	return New(decimal.Zero, code)
}

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// MinorUnits reports the number of fractional digits used by a currency.
func MinorUnits(code string) int32 {
	unit, err := currency.ParseISO(NormalizeCode(code))
	if err != nil {
		return DefaultMinorUnits
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Add sums two values of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if !m.sameCurrency(other) {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.code(other)}, nil
}

// Sub subtracts other from m; both must share a currency.
func (m Money) Sub(other Money) (Money, error) {
	if !m.sameCurrency(other) {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.code(other)}, nil
}

// Neg flips the sign of the amount.
func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Mul scales the amount by factor.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Round rounds half away from zero to the given number of places.
func (m Money) Round(places int32) Money {
	return Money{Amount: m.Amount.Round(places), Currency: m.Currency}
}

// RoundMinor rounds to the minor-unit precision of the value's currency.
func (m Money) RoundMinor() Money {
	return m.Round(MinorUnits(m.Currency))
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// Equal compares currency and numeric value.
func (m Money) Equal(other Money) bool {
	return NormalizeCode(m.Currency) == NormalizeCode(other.Currency) && m.Amount.Equal(other.Amount)
}

func (m Money) String() string {
	return m.Amount.StringFixed(MinorUnits(m.Currency)) + " " + m.Currency
}

// A zero amount without a code is compatible with any currency.
func (m Money) sameCurrency(other Money) bool {
	a, b := NormalizeCode(m.Currency), NormalizeCode(other.Currency)
	if a == b {
		return true
	}
	return (a == "" && m.IsZero()) || (b == "" && other.IsZero())
}

func (m Money) code(other Money) string {
	if m.Currency != "" {
		return NormalizeCode(m.Currency)
	}
	return NormalizeCode(other.Currency)
}
