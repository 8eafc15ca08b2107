package fx

import (
	"fmt"
	"strings"
)

// Mode selects which rate column a conversion reads.
type Mode string

const (
	// ModeSale uses the business's market/sale exchange rate.
	ModeSale Mode = "sale"
	// ModeOfficial uses the official exchange rate, falling back to the sale rate.
	ModeOfficial Mode = "official"
)

// ParseMode validates a rate mode label; empty means ModeSale.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeSale:
		return ModeSale, nil
	case ModeOfficial:
		return ModeOfficial, nil
	default:
		return "", fmt.Errorf("fx: unsupported rate mode %q", raw)
	}
}

// Policy describes how converted amounts are produced. Precision is the number of decimal
// places kept after conversion.
type Policy struct {
	Mode      Mode
	Precision int32
}

// DefaultPolicy converts at the sale rate and rounds to two decimals.
func DefaultPolicy() Policy {
	return Policy{
		Mode:      ModeSale,
		Precision: 2,
	}
}
