// Package settlement computes how tendered payments settle an order's debt and registers
// accepted payments with the POS backend.
package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pos-backoffice/internal/fx"
	"github.com/odyssey-erp/pos-backoffice/internal/money"
	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

// NegativeDifferenceError reports a currency where the tendered amount falls short of the debt.
type NegativeDifferenceError struct {
	Currency string
	Amount   decimal.Decimal
}

func (e *NegativeDifferenceError) Error() string {
	return fmt.Sprintf("settlement: tendered %s short by %s", e.Currency, e.Amount.Abs().String())
}

func (e *NegativeDifferenceError) Unwrap() error {
	return shared.ErrUnprocessable
}

// Result is the outcome of settling tendered payments against a debt.
type Result struct {
	Differences    []money.Money   `json:"differences"`
	AmountReturned money.Money     `json:"amountReturned"`
	Payments       []money.Payment `json:"payments"`
}

// Accepted reports whether every per-currency difference is non-negative.
func (r Result) Accepted() bool {
	return len(r.Shortfalls()) == 0
}

// Shortfalls lists the currencies whose difference is negative.
func (r Result) Shortfalls() []money.Money {
	out := make([]money.Money, 0)
	for _, diff := range r.Differences {
		if diff.IsNegative() {
			out = append(out, diff)
		}
	}
	return out
}

// Accept returns a *NegativeDifferenceError for the first short currency.
func Accept(r Result) error {
	for _, diff := range r.Differences {
		if diff.IsNegative() {
			return &NegativeDifferenceError{Currency: diff.Currency, Amount: diff.Amount}
		}
	}
	return nil
}

// ComputeDifference returns tendered minus debt for every currency touched by either side.
// Debt currencies come first in debt order, then tendered-only currencies. Values in different
// currencies are never netted against each other.
func ComputeDifference(debt, tendered []money.Money) []money.Money {
	owed := money.Aggregate(debt)
	paid := money.Aggregate(tendered)

	out := make([]money.Money, 0, len(owed)+len(paid))
	seen := make(map[string]struct{}, len(owed))
	for _, d := range owed {
		seen[d.Currency] = struct{}{}
		diff := money.New(money.AmountOf(paid, d.Currency).Sub(d.Amount), d.Currency)
		out = append(out, diff.RoundMinor())
	}
	for _, p := range paid {
		if _, ok := seen[p.Currency]; ok {
			continue
		}
		out = append(out, p.RoundMinor())
	}
	return out
}

// Compute settles tendered payments against debt and values the change in the main currency
// at the sale rate.
func Compute(debt []money.Money, tendered []money.Payment, table *fx.Table) (Result, error) {
	payments := money.MergePayments(tendered)
	diffs := ComputeDifference(debt, money.Amounts(payments))

	main := table.Main()
	conv := fx.NewConverter(table, fx.Policy{Mode: fx.ModeSale, Precision: money.MinorUnits(main)})
	returned, err := conv.SumIn(diffs, main)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Differences:    diffs,
		AmountReturned: returned,
		Payments:       payments,
	}, nil
}
