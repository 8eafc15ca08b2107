package backoffice

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/odyssey-erp/pos-backoffice/internal/fx"
	"github.com/odyssey-erp/pos-backoffice/internal/money"
	"github.com/odyssey-erp/pos-backoffice/internal/report"
	"github.com/odyssey-erp/pos-backoffice/internal/settlement"
)

var (
	_ report.Source      = (*Client)(nil)
	_ settlement.Backend = (*Client)(nil)
)

func businessPath(businessID int64, rest string) string {
	return fmt.Sprintf("/businesses/%d%s", businessID, rest)
}

// BusinessConfig fetches the configuration of a business.
func (c *Client) BusinessConfig(ctx context.Context, businessID int64) (BusinessConfig, error) {
	var cfg BusinessConfig
	err := c.do(ctx, request{op: "business config", method: http.MethodGet, path: businessPath(businessID, "/config")}, &cfg)
	return cfg, err
}

// Business loads the summary context of a business.
func (c *Client) Business(ctx context.Context, businessID int64) (report.Business, error) {
	cfg, err := c.BusinessConfig(ctx, businessID)
	if err != nil {
		return report.Business{}, err
	}
	table, err := cfg.Table()
	if err != nil {
		return report.Business{}, fmt.Errorf("backoffice: business %d rates: %w", businessID, err)
	}
	return report.Business{
		ID:           businessID,
		Rates:        table,
		CostCurrency: cfg.CostCurrency,
		Config:       cfg.SummaryConfig(),
	}, nil
}

// Rates returns the exchange rate table of a business.
func (c *Client) Rates(ctx context.Context, businessID int64) (*fx.Table, error) {
	cfg, err := c.BusinessConfig(ctx, businessID)
	if err != nil {
		return nil, err
	}
	table, err := cfg.Table()
	if err != nil {
		return nil, fmt.Errorf("backoffice: business %d rates: %w", businessID, err)
	}
	return table, nil
}

// Orders lists every order matching criteria, following pagination. Orders repeated across
// pages are collapsed by id.
func (c *Client) Orders(ctx context.Context, businessID int64, criteria report.Criteria) ([]report.Order, error) {
	var all []report.Order
	err := paginate(ctx, c, "orders", businessPath(businessID, "/orders"), criteria.Values(), func(items []report.Order) {
		all = append(all, items...)
	})
	if err != nil {
		return nil, err
	}
	return report.IndexOrders(all).Orders(), nil
}

// CashOperations lists the cash register movements matching criteria.
func (c *Client) CashOperations(ctx context.Context, businessID int64, criteria report.Criteria) ([]report.CashOperation, error) {
	out := make([]report.CashOperation, 0)
	err := paginate(ctx, c, "cash operations", businessPath(businessID, "/cash-operations"), criteria.Values(), func(items []report.CashOperation) {
		out = append(out, items...)
	})
	return out, err
}

// BankTransactions lists the bank movements matching criteria.
func (c *Client) BankTransactions(ctx context.Context, businessID int64, criteria report.Criteria) ([]report.BankTransaction, error) {
	out := make([]report.BankTransaction, 0)
	err := paginate(ctx, c, "bank transactions", businessPath(businessID, "/bank-transactions"), criteria.Values(), func(items []report.BankTransaction) {
		out = append(out, items...)
	})
	return out, err
}

// Order fetches one order.
func (c *Client) Order(ctx context.Context, businessID, orderID int64) (report.Order, error) {
	var o report.Order
	path := businessPath(businessID, fmt.Sprintf("/orders/%d", orderID))
	err := c.do(ctx, request{op: "order", method: http.MethodGet, path: path}, &o)
	return o, err
}

// OrderDebt returns what an order still has to pay, per currency.
func (c *Client) OrderDebt(ctx context.Context, businessID, orderID int64) ([]money.Money, error) {
	o, err := c.Order(ctx, businessID, orderID)
	if err != nil {
		return nil, err
	}
	return money.Aggregate(o.TotalToPay), nil
}

// RecordPayment stores an accepted settlement. The idempotency key is forwarded so the
// backend can drop replays too.
func (c *Client) RecordPayment(ctx context.Context, rec settlement.PaymentRecord) error {
	headers := map[string]string{}
	if rec.IdempotencyKey != "" {
		headers[IdempotencyHeader] = rec.IdempotencyKey
	}
	path := businessPath(rec.BusinessID, fmt.Sprintf("/orders/%d/payments", rec.OrderID))
	return c.do(ctx, request{op: "record payment", method: http.MethodPost, path: path, body: rec, headers: headers}, nil)
}

func paginate[T any](ctx context.Context, c *Client, op, path string, query url.Values, emit func([]T)) error {
	for pageNum := 1; ; pageNum++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(pageNum))
		q.Set("per_page", strconv.Itoa(c.pageSize))

		var p page[T]
		if err := c.do(ctx, request{op: op, method: http.MethodGet, path: path, query: q}, &p); err != nil {
			return err
		}
		emit(p.Data)
		if pageNum >= p.Meta.TotalPages || len(p.Data) == 0 {
			return nil
		}
	}
}
