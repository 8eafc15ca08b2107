package report

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pos-backoffice/internal/fx"
	"github.com/odyssey-erp/pos-backoffice/internal/money"
)

var hundred = decimal.NewFromInt(100)

// Engine turns raw cycle records into a Summary. It holds no state besides its rates and
// is safe for concurrent use.
type Engine struct {
	table        *fx.Table
	costCurrency string
	policy       fx.Policy
}

// NewEngine constructs an engine. An empty cost currency defaults to the main currency.
func NewEngine(table *fx.Table, costCurrency string, policy fx.Policy) *Engine {
	cost := money.NormalizeCode(costCurrency)
	if cost == "" {
		cost = table.Main()
	}
	return &Engine{table: table, costCurrency: cost, policy: policy}
}

// Summarize aggregates the input under the given configuration. Missing exchange rates
// degrade the revenue figure to unavailable and add a warning; they never fail the summary.
func (e *Engine) Summarize(in Input, cfg Config) Summary {
	var (
		payments    []money.Payment
		discounts   []money.Money
		courtesy    []money.Money
		commissions []money.Money
		tips        []money.Money
		shipping    []money.Money
		taxes       []money.Money
		houseCosted = decimal.Zero
		totalCost   = decimal.Zero
	)
	s := Summary{OrderCount: len(in.Orders)}

	for _, o := range in.Orders {
		totalCost = totalCost.Add(o.TotalCost)
		if o.HouseCosted {
			houseCosted = houseCosted.Add(o.TotalCost)
			s.HouseCostedCount++
			continue
		}
		payments = append(payments, o.CurrenciesPayment...)
		warnUnknownWays(&s, o)
		if o.IsCourtesy() {
			courtesy = append(courtesy, o.Prices...)
		} else {
			discounts = append(discounts, percentOf(o.Prices, o.DiscountPercent)...)
			discounts = append(discounts, o.CouponDiscountPrice...)
		}
		commissions = append(commissions, percentOf(o.Prices, o.CommissionPercent)...)
		if o.TipPrice != nil {
			tips = append(tips, *o.TipPrice)
		}
		if o.ShippingPrice != nil && cfg.EnableDelivery {
			shipping = append(shipping, *o.ShippingPrice)
		}
		if o.Taxes != nil {
			taxes = append(taxes, *o.Taxes)
		}
	}

	cash := e.applyCashOperations(&s, in.CashOperations, cfg)
	payments = append(payments, cash...)

	byWay := money.ByWay(payments)
	s.SalesByWay = make([]WaySales, 0, len(byWay))
	var allSales []money.Money
	for _, way := range reportingOrder(byWay) {
		totals := money.RoundAll(byWay[way])
		if len(totals) == 0 {
			continue
		}
		s.SalesByWay = append(s.SalesByWay, WaySales{Way: way, Totals: totals})
		allSales = append(allSales, byWay[way]...)
	}
	s.TotalSales = money.RoundAll(money.Aggregate(allSales))
	s.Discounts = money.RoundAll(money.Aggregate(discounts))
	s.Courtesy = money.RoundAll(money.Aggregate(courtesy))
	s.Commissions = money.RoundAll(money.Aggregate(commissions))
	s.Tips = money.RoundAll(money.Aggregate(tips))
	s.Shipping = money.RoundAll(money.Aggregate(shipping))
	s.Taxes = money.RoundAll(money.Aggregate(taxes))
	s.HouseCosted = money.New(houseCosted, e.costCurrency).RoundMinor()
	s.TotalCost = money.New(totalCost, e.costCurrency).RoundMinor()

	s.CashInRegister = money.RoundAll(money.Concat(
		byWay[money.PaymentWayCash],
		s.Deposits,
		money.Negate(s.Withdrawals),
	))
	s.BankAccounts = summarizeBank(in.BankTransactions)
	s.Revenue = e.revenue(&s)
	if s.Warnings == nil {
		s.Warnings = []string{}
	}
	return s
}

// applyCashOperations fills deposits, withdrawals and salaries and returns the movements
// that the configuration folds into cash sales.
func (e *Engine) applyCashOperations(s *Summary, ops []CashOperation, cfg Config) []money.Payment {
	var deposits, withdrawals, salaries []money.Money
	var sales []money.Payment
	asSale := func(m money.Money) {
		sales = append(sales, money.NewPayment(m, money.PaymentWayCash))
	}
	for _, op := range ops {
		amount := money.New(op.Amount.Amount.Abs(), op.Amount.Currency)
		switch op.Kind {
		case CashDepositSale, CashWithdrawSale:
			// mirrors of order payments already counted in sales
		case CashManualDeposit, CashManualFund, CashDepositExchange:
			deposits = append(deposits, amount)
		case CashManualWithdraw, CashWithdrawExchange:
			withdrawals = append(withdrawals, amount)
		case CashDepositTip:
			if cfg.IncludeTips {
				asSale(amount)
			} else {
				deposits = append(deposits, amount)
			}
		case CashWithdrawTip:
			if cfg.IncludeTips {
				asSale(amount.Neg())
			} else {
				withdrawals = append(withdrawals, amount)
			}
		case CashWithdrawShipping:
			if cfg.IncludeDeliveries && cfg.EnableDelivery {
				asSale(amount.Neg())
			} else {
				withdrawals = append(withdrawals, amount)
			}
		case CashWithdrawSalary:
			if cfg.ExtractSalaryFromCash {
				withdrawals = append(withdrawals, amount)
			} else {
				salaries = append(salaries, amount)
			}
		default:
			s.Warnings = append(s.Warnings, fmt.Sprintf("cash operation %d: unknown kind %q ignored", op.ID, op.Kind))
		}
	}
	s.Deposits = money.RoundAll(money.Aggregate(deposits))
	s.Withdrawals = money.RoundAll(money.Aggregate(withdrawals))
	s.Salaries = money.RoundAll(money.Aggregate(salaries))
	return sales
}

func (e *Engine) revenue(s *Summary) Revenue {
	main := e.table.Main()
	conv := fx.NewConverter(e.table, fx.Policy{Mode: e.policy.Mode, Precision: e.policy.Precision})
	sales, err := conv.SumIn(s.TotalSales, main)
	if err != nil {
		s.Warnings = append(s.Warnings, fmt.Sprintf("revenue unavailable: %v", err))
		return Revenue{Money: money.Zero(main)}
	}
	cost, err := conv.Convert(s.TotalCost, main)
	if err != nil {
		s.Warnings = append(s.Warnings, fmt.Sprintf("revenue unavailable: %v", err))
		return Revenue{Money: money.Zero(main)}
	}
	return Revenue{Money: money.New(sales.Amount.Sub(cost.Amount), main), Available: true}
}

// reportingOrder lists the known ways first, then any other way found, alphabetically.
func reportingOrder(byWay map[money.PaymentWay][]money.Money) []money.PaymentWay {
	ways := append([]money.PaymentWay(nil), money.PaymentWays...)
	var extra []money.PaymentWay
	for way := range byWay {
		if !way.Known() {
			extra = append(extra, way)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(ways, extra...)
}

func warnUnknownWays(s *Summary, o Order) {
	seen := make(map[money.PaymentWay]bool)
	for _, p := range o.CurrenciesPayment {
		way := p.Way.Normalize()
		if way.Known() || seen[way] {
			continue
		}
		seen[way] = true
		s.Warnings = append(s.Warnings, fmt.Sprintf("order %d: payment way %q reported as %s", o.ID, p.Way, way))
	}
}

func percentOf(prices []money.Money, percent decimal.Decimal) []money.Money {
	if !percent.IsPositive() {
		return nil
	}
	out := make([]money.Money, 0, len(prices))
	for _, p := range prices {
		out = append(out, money.New(p.Amount.Mul(percent).Div(hundred), p.Currency))
	}
	return out
}

func summarizeBank(txs []BankTransaction) []BankAccountTotal {
	type account struct {
		name    string
		amounts []money.Money
	}
	accounts := make(map[int64]*account)
	for _, tx := range txs {
		acc, ok := accounts[tx.AccountID]
		if !ok {
			acc = &account{name: tx.AccountName}
			accounts[tx.AccountID] = acc
		}
		acc.amounts = append(acc.amounts, tx.Amount)
	}
	out := make([]BankAccountTotal, 0, len(accounts))
	for id, acc := range accounts {
		out = append(out, BankAccountTotal{AccountID: id, Name: acc.name, Totals: money.RoundAll(money.Aggregate(acc.amounts))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}
