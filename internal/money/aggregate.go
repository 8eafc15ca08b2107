package money

import "github.com/shopspring/decimal"

// Aggregate merges entries into one total per currency. Totals keep the order in which each
// currency first appears, and zero totals are kept.
func Aggregate(entries []Money) []Money {
	if len(entries) == 0 {
		return []Money{}
	}
	index := make(map[string]int, len(entries))
	out := make([]Money, 0, len(entries))
	for _, entry := range entries {
		code := NormalizeCode(entry.Currency)
		if i, ok := index[code]; ok {
			out[i].Amount = out[i].Amount.Add(entry.Amount)
			continue
		}
		index[code] = len(out)
		out = append(out, Money{Amount: entry.Amount, Currency: code})
	}
	return out
}

// Concat aggregates several lists as if they were one.
func Concat(lists ...[]Money) []Money {
	var all []Money
	for _, list := range lists {
		all = append(all, list...)
	}
	return Aggregate(all)
}

// Negate returns a copy of entries with every sign flipped.
func Negate(entries []Money) []Money {
	out := make([]Money, len(entries))
	for i, entry := range entries {
		out[i] = entry.Neg()
	}
	return out
}

// FilterZero drops entries whose amount is zero.
func FilterZero(entries []Money) []Money {
	out := make([]Money, 0, len(entries))
	for _, entry := range entries {
		if entry.IsZero() {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// AmountOf returns the amount held for code, or zero.
func AmountOf(entries []Money, code string) decimal.Decimal {
	code = NormalizeCode(code)
	total := decimal.Zero
	for _, entry := range entries {
		if NormalizeCode(entry.Currency) == code {
			total = total.Add(entry.Amount)
		}
	}
	return total
}

// RoundAll rounds every entry to its currency's minor units.
func RoundAll(entries []Money) []Money {
	out := make([]Money, len(entries))
	for i, entry := range entries {
		out[i] = entry.RoundMinor()
	}
	return out
}
