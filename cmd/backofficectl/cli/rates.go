package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/odyssey-erp/pos-backoffice/internal/fx"
)

// RateSource loads the exchange rate table of a business.
type RateSource interface {
	Rates(ctx context.Context, businessID int64) (*fx.Table, error)
}

// RatesCLI offers operational helpers around business exchange rates.
type RatesCLI struct {
	source RateSource
}

// NewRatesCLI constructs a new helper instance.
func NewRatesCLI(source RateSource) (*RatesCLI, error) {
	if source == nil {
		return nil, errors.New("rates cli: rate source required")
	}
	return &RatesCLI{source: source}, nil
}

// RatesValidateOptions defines available flags for the rates validate command.
type RatesValidateOptions struct {
	BusinessID int64
	Modes      []fx.Mode
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// RatesValidateSummary describes the JSON response for rates validate.
type RatesValidateSummary struct {
	OK           bool                `json:"ok"`
	BusinessID   int64               `json:"business_id"`
	MainCurrency string              `json:"main_currency"`
	Gaps         []RateValidationGap `json:"gaps"`
	Available    []RateAvailability  `json:"available_rates"`
}

// RateValidationGap captures a missing rate mode for a currency.
type RateValidationGap struct {
	Currency string `json:"currency"`
	Mode     string `json:"mode"`
}

// RateAvailability reports a configured rate.
type RateAvailability struct {
	Currency string `json:"currency"`
	Mode     string `json:"mode"`
	Rate     string `json:"rate"`
}

// ExitGaps is returned by ValidateCommand when at least one rate is missing.
const ExitGaps = 10

// ValidateCommand executes the rates validate workflow and prints the outcome.
func (c *RatesCLI) ValidateCommand(ctx context.Context, opts RatesValidateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.BusinessID <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "rates validate: --business is required and must be positive")
		return 1
	}
	modes := opts.Modes
	if len(modes) == 0 {
		modes = []fx.Mode{fx.ModeSale, fx.ModeOfficial}
	}
	table, err := c.source.Rates(ctx, opts.BusinessID)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "rates validate: %v\n", err)
		return 1
	}
	result, err := fx.Validate(table, fx.RequireAll(table, modes...))
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "rates validate: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		summary := buildValidateSummary(opts.BusinessID, modes, result)
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "rates validate: encode json: %v\n", err)
			return 1
		}
	} else {
		renderValidateHuman(opts.Stdout, opts.BusinessID, modes, result)
	}
	if !result.OK() {
		return ExitGaps
	}
	return 0
}

func buildValidateSummary(businessID int64, modes []fx.Mode, result fx.Result) RatesValidateSummary {
	gaps := make([]RateValidationGap, 0, len(result.Gaps))
	for _, gap := range result.Gaps {
		for _, mode := range gap.Modes {
			gaps = append(gaps, RateValidationGap{Currency: gap.Currency, Mode: string(mode)})
		}
	}
	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Currency == gaps[j].Currency {
			return gaps[i].Mode < gaps[j].Mode
		}
		return gaps[i].Currency < gaps[j].Currency
	})
	available := make([]RateAvailability, 0, len(result.Available)*len(modes))
	for code, rate := range result.Available {
		for _, mode := range modes {
			switch value := rate.Value(mode); {
			case code == result.MainCurrency:
				available = append(available, RateAvailability{Currency: code, Mode: string(mode), Rate: "1"})
			case value.IsPositive():
				available = append(available, RateAvailability{Currency: code, Mode: string(mode), Rate: value.String()})
			}
		}
	}
	sort.Slice(available, func(i, j int) bool {
		if available[i].Currency == available[j].Currency {
			return available[i].Mode < available[j].Mode
		}
		return available[i].Currency < available[j].Currency
	})
	return RatesValidateSummary{
		OK:           len(gaps) == 0,
		BusinessID:   businessID,
		MainCurrency: result.MainCurrency,
		Gaps:         gaps,
		Available:    available,
	}
}

func renderValidateHuman(out io.Writer, businessID int64, modes []fx.Mode, result fx.Result) {
	names := make([]string, len(modes))
	for i, mode := range modes {
		names[i] = string(mode)
	}
	_, _ = fmt.Fprintf(out, "Rate validation for business %d (main %s), modes %s\n", businessID, result.MainCurrency, strings.Join(names, ", "))
	if result.OK() {
		_, _ = fmt.Fprintln(out, "All required exchange rates are present.")
	} else {
		_, _ = fmt.Fprintf(out, "%d gap(s) detected:\n", len(result.Gaps))
		for _, gap := range result.Gaps {
			missing := make([]string, len(gap.Modes))
			for i, mode := range gap.Modes {
				missing[i] = string(mode)
			}
			_, _ = fmt.Fprintf(out, " - %s missing %s\n", gap.Currency, strings.Join(missing, ", "))
		}
	}
	codes := make([]string, 0, len(result.Available))
	for code := range result.Available {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	if len(codes) > 0 {
		_, _ = fmt.Fprintln(out, "Configured rates:")
		for _, code := range codes {
			rate := result.Available[code]
			if code == result.MainCurrency {
				_, _ = fmt.Fprintf(out, " - %s (main)\n", code)
				continue
			}
			_, _ = fmt.Fprintf(out, " - %s sale=%s official=%s\n", code, rate.ExchangeRate.String(), rate.Value(fx.ModeOfficial).String())
		}
	}
}
