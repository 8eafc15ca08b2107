package fx

import (
	"fmt"
	"sort"

	"github.com/odyssey-erp/pos-backoffice/internal/money"
)

// Requirement declares which rate modes must be usable for a currency.
type Requirement struct {
	Currency string
	Modes    []Mode
}

// Gap contains missing rate modes for a currency.
type Gap struct {
	Currency string
	Modes    []Mode
}

// Result summarises the validation outcome.
type Result struct {
	MainCurrency string
	Checked      int
	Gaps         []Gap
	Available    map[string]Rate
}

// OK reports whether no gaps were found.
func (r Result) OK() bool {
	return len(r.Gaps) == 0
}

// Validate ensures every required currency has a positive rate for each requested mode.
// An official requirement is satisfied by the sale-rate fallback.
func Validate(table *Table, reqs []Requirement) (Result, error) {
	var res Result
	if table == nil {
		return res, fmt.Errorf("fx: rate table required")
	}
	res.MainCurrency = table.Main()
	res.Available = map[string]Rate{}
	res.Gaps = make([]Gap, 0)
	if len(reqs) == 0 {
		return res, nil
	}
	required := make(map[string]map[Mode]struct{})
	for _, req := range reqs {
		code := money.NormalizeCode(req.Currency)
		if code == "" {
			return Result{}, fmt.Errorf("fx: currency required")
		}
		if len(req.Modes) == 0 {
			return Result{}, fmt.Errorf("fx: modes required for currency %s", code)
		}
		modes := required[code]
		if modes == nil {
			modes = make(map[Mode]struct{}, len(req.Modes))
			required[code] = modes
		}
		for _, mode := range req.Modes {
			switch mode {
			case ModeSale, ModeOfficial:
				modes[mode] = struct{}{}
			default:
				return Result{}, fmt.Errorf("fx: unsupported mode %q for currency %s", mode, code)
			}
		}
	}
	codes := make([]string, 0, len(required))
	for code := range required {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		res.Checked++
		if code == res.MainCurrency {
			r, _ := table.Lookup(code)
			res.Available[code] = r
			continue
		}
		r, ok := table.Lookup(code)
		if !ok {
			res.Gaps = append(res.Gaps, Gap{Currency: code, Modes: sortedModes(required[code])})
			continue
		}
		res.Available[code] = r
		if missing := missingModes(r, required[code]); len(missing) > 0 {
			res.Gaps = append(res.Gaps, Gap{Currency: code, Modes: missing})
		}
	}
	return res, nil
}

// RequireAll builds requirements for every configured currency and the given modes.
func RequireAll(table *Table, modes ...Mode) []Requirement {
	if len(modes) == 0 {
		modes = []Mode{ModeSale}
	}
	reqs := make([]Requirement, 0)
	for _, code := range table.SortedCodes() {
		reqs = append(reqs, Requirement{Currency: code, Modes: modes})
	}
	return reqs
}

func sortedModes(modes map[Mode]struct{}) []Mode {
	out := make([]Mode, 0, len(modes))
	for mode := range modes {
		out = append(out, mode)
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i]) < string(out[j]) })
	return out
}

func missingModes(r Rate, required map[Mode]struct{}) []Mode {
	missing := make([]Mode, 0, len(required))
	for mode := range required {
		if !r.Value(mode).IsPositive() {
			missing = append(missing, mode)
		}
	}
	if len(missing) > 1 {
		sort.Slice(missing, func(i, j int) bool { return string(missing[i]) < string(missing[j]) })
	}
	return missing
}
