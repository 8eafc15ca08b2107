package fx

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pos-backoffice/internal/money"
)

var (
	// ErrNoMainCurrency indicates the rate list has no main currency.
	ErrNoMainCurrency = errors.New("fx: no main currency configured")
	// ErrMultipleMainCurrencies indicates more than one rate is flagged as main.
	ErrMultipleMainCurrencies = errors.New("fx: more than one main currency configured")
	// ErrDuplicateRate indicates the same code appears twice.
	ErrDuplicateRate = errors.New("fx: duplicate currency rate")
)

// Rate is one entry of a business's available currencies. Rates express units of this
// currency's value in the main currency: amount_in_main = amount × rate.
type Rate struct {
	Code                 string          `json:"code"`
	IsMain               bool            `json:"isMain"`
	ExchangeRate         decimal.Decimal `json:"exchangeRate"`
	OfficialExchangeRate decimal.Decimal `json:"officialExchangeRate"`
}

// Value returns the rate for the mode. The official rate falls back to the sale rate
// when it is absent.
func (r Rate) Value(mode Mode) decimal.Decimal {
	if mode == ModeOfficial && r.OfficialExchangeRate.IsPositive() {
		return r.OfficialExchangeRate
	}
	return r.ExchangeRate
}

// Table is an indexed, validated set of rates for one business.
type Table struct {
	main  Rate
	rates map[string]Rate
	order []string
}

// NewTable validates rates and indexes them by code.
func NewTable(rates []Rate) (*Table, error) {
	t := &Table{rates: make(map[string]Rate, len(rates))}
	mains := 0
	for _, r := range rates {
		r.Code = money.NormalizeCode(r.Code)
		if r.Code == "" {
			return nil, fmt.Errorf("fx: rate code required")
		}
		if _, ok := t.rates[r.Code]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRate, r.Code)
		}
		if r.IsMain {
			mains++
			t.main = r
		}
		t.rates[r.Code] = r
		t.order = append(t.order, r.Code)
	}
	switch {
	case mains == 0:
		return nil, ErrNoMainCurrency
	case mains > 1:
		return nil, ErrMultipleMainCurrencies
	}
	return t, nil
}

// MustTable is NewTable for fixtures; it panics on invalid input.
func MustTable(rates ...Rate) *Table {
	t, err := NewTable(rates)
	if err != nil {
		panic(err)
	}
	return t
}

// Main returns the main currency code.
func (t *Table) Main() string {
	if t == nil {
		return ""
	}
	return t.main.Code
}

// Lookup returns the rate entry for code.
func (t *Table) Lookup(code string) (Rate, bool) {
	if t == nil {
		return Rate{}, false
	}
	r, ok := t.rates[money.NormalizeCode(code)]
	return r, ok
}

// Codes lists the configured currencies in the order they were supplied.
func (t *Table) Codes() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// SortedCodes lists the configured currencies alphabetically.
func (t *Table) SortedCodes() []string {
	out := t.Codes()
	sort.Strings(out)
	return out
}

// Rates returns a copy of the configured entries.
func (t *Table) Rates() []Rate {
	if t == nil {
		return nil
	}
	out := make([]Rate, 0, len(t.order))
	for _, code := range t.order {
		out = append(out, t.rates[code])
	}
	return out
}

func (t *Table) rate(code string, mode Mode) (decimal.Decimal, error) {
	r, ok := t.Lookup(code)
	if !ok {
		return decimal.Zero, &RateNotFoundError{Currency: money.NormalizeCode(code), Mode: mode}
	}
	value := r.Value(mode)
	if !value.IsPositive() {
		return decimal.Zero, &RateNotFoundError{Currency: r.Code, Mode: mode}
	}
	return value, nil
}
