// Package report aggregates orders, cash operations and bank transactions into the
// per-currency financial summary of an economic cycle or date range.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pos-backoffice/internal/fx"
	"github.com/odyssey-erp/pos-backoffice/internal/money"
)

// courtesyPercent marks an order given away entirely.
var courtesyPercent = decimal.NewFromInt(100)

// Order is a closed sale as reported by the POS backend.
type Order struct {
	ID                  int64           `json:"id"`
	BusinessID          int64           `json:"businessId"`
	EconomicCycleID     int64           `json:"economicCycleId"`
	AreaID              int64           `json:"areaId"`
	CreatedAt           time.Time       `json:"createdAt"`
	Prices              []money.Money   `json:"prices"`
	TotalToPay          []money.Money   `json:"totalToPay"`
	CurrenciesPayment   []money.Payment `json:"currenciesPayment"`
	DiscountPercent     decimal.Decimal `json:"discount"`
	CouponDiscountPrice []money.Money   `json:"couponDiscountPrice"`
	CouponCodes         []string        `json:"coupons,omitempty"`
	CommissionPercent   decimal.Decimal `json:"commission"`
	TotalCost           decimal.Decimal `json:"totalCost"`
	HouseCosted         bool            `json:"houseCosted"`
	ShippingPrice       *money.Money    `json:"shippingPrice,omitempty"`
	TipPrice            *money.Money    `json:"tipPrice,omitempty"`
	Taxes               *money.Money    `json:"taxes,omitempty"`
}

// IsCourtesy reports whether the order was discounted entirely.
func (o Order) IsCourtesy() bool {
	return o.DiscountPercent.Equal(courtesyPercent)
}

// CashOperationKind names a cash register movement.
type CashOperationKind string

const (
	CashDepositSale      CashOperationKind = "DEPOSIT_SALE"
	CashWithdrawSale     CashOperationKind = "WITHDRAW_SALE"
	CashManualDeposit    CashOperationKind = "MANUAL_DEPOSIT"
	CashManualWithdraw   CashOperationKind = "MANUAL_WITHDRAW"
	CashManualFund       CashOperationKind = "MANUAL_FUND"
	CashDepositExchange  CashOperationKind = "DEPOSIT_EXCHANGE"
	CashWithdrawExchange CashOperationKind = "WITHDRAW_EXCHANGE"
	CashDepositTip       CashOperationKind = "DEPOSIT_TIP"
	CashWithdrawTip      CashOperationKind = "WITHDRAW_TIP"
	CashWithdrawShipping CashOperationKind = "WITHDRAW_SHIPPING_PRICE"
	CashWithdrawSalary   CashOperationKind = "WITHDRAW_SALARY"
)

// CashOperation is a movement of the cash register.
type CashOperation struct {
	ID        int64             `json:"id"`
	AreaID    int64             `json:"areaId"`
	Kind      CashOperationKind `json:"operation"`
	Amount    money.Money       `json:"amount"`
	CreatedAt time.Time         `json:"createdAt"`
}

// BankTransaction is a movement of a business bank account.
type BankTransaction struct {
	ID          int64       `json:"id"`
	AccountID   int64       `json:"accountId"`
	AccountName string      `json:"accountName"`
	Amount      money.Money `json:"amount"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Config holds the business switches that move operations between buckets.
type Config struct {
	IncludeTips           bool `json:"includeTips"`
	IncludeDeliveries     bool `json:"includeDeliveries"`
	EnableDelivery        bool `json:"enableDelivery"`
	ExtractSalaryFromCash bool `json:"extractSalaryFromCash"`
}

// Input is the raw material of a summary.
type Input struct {
	Orders           []Order
	CashOperations   []CashOperation
	BankTransactions []BankTransaction
}

// Business is the per-business context a summary is computed in.
type Business struct {
	ID           int64
	Rates        *fx.Table
	CostCurrency string
	Config       Config
}

// WaySales holds the per-currency sales of one payment way.
type WaySales struct {
	Way    money.PaymentWay `json:"paymentWay"`
	Totals []money.Money    `json:"totals"`
}

// BankAccountTotal holds the per-currency balance movement of one account.
type BankAccountTotal struct {
	AccountID int64         `json:"accountId"`
	Name      string        `json:"name"`
	Totals    []money.Money `json:"totals"`
}

// Revenue is sales minus cost in the main currency. Available is false when a rate was missing.
type Revenue struct {
	money.Money
	Available bool `json:"available"`
}

// Summary is the aggregated view of a cycle or range.
type Summary struct {
	OrderCount       int                `json:"orderCount"`
	SalesByWay       []WaySales         `json:"salesByWay"`
	TotalSales       []money.Money      `json:"totalSales"`
	Discounts        []money.Money      `json:"discounts"`
	Courtesy         []money.Money      `json:"courtesy"`
	Commissions      []money.Money      `json:"commissions"`
	Tips             []money.Money      `json:"tips"`
	Shipping         []money.Money      `json:"shipping"`
	Taxes            []money.Money      `json:"taxes"`
	HouseCosted      money.Money        `json:"houseCosted"`
	HouseCostedCount int                `json:"houseCostedCount"`
	TotalCost        money.Money        `json:"totalCost"`
	Deposits         []money.Money      `json:"deposits"`
	Withdrawals      []money.Money      `json:"withdrawals"`
	Salaries         []money.Money      `json:"salaries"`
	CashInRegister   []money.Money      `json:"cashInRegister"`
	BankAccounts     []BankAccountTotal `json:"bankAccounts"`
	Revenue          Revenue            `json:"revenue"`
	Warnings         []string           `json:"warnings"`
}

// SalesIn returns the sales of a way, or nil.
func (s Summary) SalesIn(way money.PaymentWay) []money.Money {
	for _, ws := range s.SalesByWay {
		if ws.Way == way {
			return ws.Totals
		}
	}
	return nil
}
