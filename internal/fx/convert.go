package fx

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pos-backoffice/internal/money"
)

// intermediatePrecision is kept on divisions before the final rounding.
const intermediatePrecision int32 = 15

// RateNotFoundError reports a conversion that has no usable rate for a currency.
type RateNotFoundError struct {
	Currency string
	Mode     Mode
}

func (e *RateNotFoundError) Error() string {
	if e.Mode == "" {
		return fmt.Sprintf("fx: no exchange rate for %s", e.Currency)
	}
	return fmt.Sprintf("fx: no %s exchange rate for %s", e.Mode, e.Currency)
}

// Converter applies a Policy over a rate table.
type Converter struct {
	table  *Table
	policy Policy
}

// NewConverter constructs a converter instance. A zero Policy means DefaultPolicy. Once a
// mode is set, Precision 0 rounds to whole units.
func NewConverter(table *Table, policy Policy) *Converter {
	if policy == (Policy{}) {
		policy = DefaultPolicy()
	}
	if policy.Mode == "" {
		policy.Mode = ModeSale
	}
	if policy.Precision < 0 {
		policy.Precision = DefaultPolicy().Precision
	}
	return &Converter{table: table, policy: policy}
}

// Table exposes the rates the converter reads.
func (c *Converter) Table() *Table {
	return c.table
}

// Convert converts value into currency to using the converter's mode.
func (c *Converter) Convert(value money.Money, to string) (money.Money, error) {
	return c.ConvertMode(value, to, c.policy.Mode)
}

// ConvertMode converts value into currency to with an explicit mode.
func (c *Converter) ConvertMode(value money.Money, to string, mode Mode) (money.Money, error) {
	amount, err := c.table.convertExact(value, to, mode)
	if err != nil {
		return money.Money{}, err
	}
	if money.NormalizeCode(value.Currency) == money.NormalizeCode(to) {
		return value, nil
	}
	return money.New(amount.Round(c.policy.Precision), to), nil
}

// ToMain converts value into the main currency.
func (c *Converter) ToMain(value money.Money) (money.Money, error) {
	return c.Convert(value, c.table.Main())
}

// SumIn converts every entry into currency to and returns the rounded total.
func (c *Converter) SumIn(entries []money.Money, to string) (money.Money, error) {
	total := decimal.Zero
	for _, entry := range entries {
		amount, err := c.table.convertExact(entry, to, c.policy.Mode)
		if err != nil {
			return money.Money{}, err
		}
		total = total.Add(amount)
	}
	return money.New(total.Round(c.policy.Precision), to), nil
}

// Convert converts value with the table at the default precision.
func (t *Table) Convert(value money.Money, to string, mode Mode) (money.Money, error) {
	return NewConverter(t, Policy{Mode: mode, Precision: DefaultPolicy().Precision}).Convert(value, to)
}

// Convert converts value using the supplied rate list.
func Convert(value money.Money, to string, rates []Rate, mode Mode) (money.Money, error) {
	table, err := NewTable(rates)
	if err != nil {
		return money.Money{}, err
	}
	return table.Convert(value, to, mode)
}

func (t *Table) convertExact(value money.Money, to string, mode Mode) (decimal.Decimal, error) {
	from := money.NormalizeCode(value.Currency)
	to = money.NormalizeCode(to)
	if from == to {
		return value.Amount, nil
	}
	if t == nil {
		return decimal.Zero, &RateNotFoundError{Currency: to, Mode: mode}
	}
	if _, ok := t.Lookup(to); !ok {
		return decimal.Zero, &RateNotFoundError{Currency: to, Mode: mode}
	}
	main := t.Main()

	inMain := value.Amount
	if from != main {
		rate, err := t.rate(from, mode)
		if err != nil {
			return decimal.Zero, err
		}
		inMain = value.Amount.Mul(rate)
	}
	if to == main {
		return inMain, nil
	}
	rate, err := t.rate(to, mode)
	if err != nil {
		return decimal.Zero, err
	}
	return inMain.DivRound(rate, intermediatePrecision), nil
}
