package backoffice

import (
	"strconv"
	"strings"

	"github.com/odyssey-erp/pos-backoffice/internal/fx"
	"github.com/odyssey-erp/pos-backoffice/internal/report"
)

// Configuration keys read from the business settings.
const (
	KeyIncludeTips           = "cash_operations_include_tips"
	KeyIncludeDeliveries     = "cash_operations_include_deliveries"
	KeyEnableDelivery        = "enable_delivery"
	KeyExtractSalaryFromCash = "extract_salary_from_cash"
)

// ConfigKey is one business setting.
type ConfigKey struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// BusinessConfig is the business configuration served by the backend.
type BusinessConfig struct {
	ID                  int64       `json:"id"`
	Name                string      `json:"name"`
	AvailableCurrencies []fx.Rate   `json:"availableCurrencies"`
	CostCurrency        string      `json:"costCurrency"`
	ConfigurationsKey   []ConfigKey `json:"configurationsKey"`
}

// Table indexes the available currencies.
func (b BusinessConfig) Table() (*fx.Table, error) {
	return fx.NewTable(b.AvailableCurrencies)
}

// Flag reads a boolean setting; missing or unparsable values are false.
func (b BusinessConfig) Flag(key string) bool {
	for _, k := range b.ConfigurationsKey {
		if strings.EqualFold(k.Key, key) {
			v, err := strconv.ParseBool(strings.TrimSpace(k.Value))
			return err == nil && v
		}
	}
	return false
}

// SummaryConfig extracts the switches the report engine understands.
func (b BusinessConfig) SummaryConfig() report.Config {
	return report.Config{
		IncludeTips:           b.Flag(KeyIncludeTips),
		IncludeDeliveries:     b.Flag(KeyIncludeDeliveries),
		EnableDelivery:        b.Flag(KeyEnableDelivery),
		ExtractSalaryFromCash: b.Flag(KeyExtractSalaryFromCash),
	}
}

type page[T any] struct {
	Data []T      `json:"data"`
	Meta pageMeta `json:"meta"`
}

type pageMeta struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}
