package backoffice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pos-backoffice/internal/money"
	"github.com/odyssey-erp/pos-backoffice/internal/platform/resilience"
	"github.com/odyssey-erp/pos-backoffice/internal/report"
	"github.com/odyssey-erp/pos-backoffice/internal/settlement"
	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

const businessConfigJSON = `{
	"id": 4,
	"name": "Cafe",
	"costCurrency": "CUP",
	"availableCurrencies": [
		{"code": "CUP", "isMain": true, "exchangeRate": 1},
		{"code": "USD", "isMain": false, "exchangeRate": "120", "officialExchangeRate": 24}
	],
	"configurationsKey": [
		{"key": "cash_operations_include_tips", "value": "true"},
		{"key": "enable_delivery", "value": "1"},
		{"key": "extract_salary_from_cash", "value": "nope"}
	]
}`

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{
		BaseURL:  srv.URL + "/",
		Token:    "secret",
		Retry:    resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond},
		PageSize: 2,
	})
	require.NoError(t, err)
	return c
}

func TestBusinessMapsConfig(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/4/config", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(businessConfigJSON))
	}))

	b, err := c.Business(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "CUP", b.Rates.Main())
	assert.Equal(t, "CUP", b.CostCurrency)
	assert.Equal(t, report.Config{IncludeTips: true, EnableDelivery: true}, b.Config)

	usd, ok := b.Rates.Lookup("USD")
	require.True(t, ok)
	assert.True(t, usd.ExchangeRate.Equal(decimal.NewFromInt(120)))
}

func TestRatesRejectsTableWithoutMain(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"availableCurrencies":[{"code":"USD","exchangeRate":1}]}`))
	}))
	_, err := c.Rates(context.Background(), 4)
	require.Error(t, err)
}

func TestOrdersFollowsPaginationAndForwardsCriteria(t *testing.T) {
	pages := map[string]string{
		"1": `{"data":[{"id":1,"areaId":2},{"id":2,"areaId":2}],"meta":{"page":1,"totalPages":2}}`,
		"2": `{"data":[{"id":2,"areaId":2,"totalCost":"5"},{"id":3,"areaId":2}],"meta":{"page":2,"totalPages":2}}`,
	}
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "/businesses/4/orders", r.URL.Path)
		assert.Equal(t, "2", q.Get("areaId"))
		assert.Equal(t, "9", q.Get("economicCycleId"))
		assert.Equal(t, "2", q.Get("per_page"))
		_, _ = w.Write([]byte(pages[q.Get("page")]))
	}))

	criteria, err := report.NewCriteria(report.CycleFilter{CycleID: 9}, report.AreaFilter{AreaIDs: []int64{2}})
	require.NoError(t, err)
	orders, err := c.Orders(context.Background(), 4, criteria)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, orders, 3, "duplicates across pages collapse by id")
	assert.Equal(t, []int64{1, 2, 3}, []int64{orders[0].ID, orders[1].ID, orders[2].ID})
	assert.True(t, orders[1].TotalCost.Equal(decimal.NewFromInt(5)), "later page wins")
}

func TestCashOperationsAndBankTransactions(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/businesses/4/cash-operations":
			_, _ = w.Write([]byte(`{"data":[{"id":1,"operation":"DEPOSIT_TIP","amount":{"amount":"5","codeCurrency":"USD"}}],"meta":{"page":1,"totalPages":1}}`))
		case "/businesses/4/bank-transactions":
			_, _ = w.Write([]byte(`{"data":[],"meta":{"page":1,"totalPages":0}}`))
		default:
			http.NotFound(w, r)
		}
	}))

	ops, err := c.CashOperations(context.Background(), 4, report.Criteria{})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, report.CashDepositTip, ops[0].Kind)
	assert.Equal(t, "USD", ops[0].Amount.Currency)

	txs, err := c.BankTransactions(context.Background(), 4, report.Criteria{})
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "order not found", http.StatusNotFound)
	}))

	_, err := c.OrderDebt(context.Background(), 4, 77)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.Equal(t, int32(1), calls.Load())
}

func TestServerErrorsRetriedThenWrapped(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.BusinessConfig(context.Background(), 4)
	var ext *ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, http.StatusBadGateway, ext.Status)
	assert.Equal(t, "business config", ext.Operation)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTransientErrorRecovers(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":77,"totalToPay":[{"amount":"100","codeCurrency":"USD"},{"amount":"50","codeCurrency":"USD"}]}`))
	}))

	debt, err := c.OrderDebt(context.Background(), 4, 77)
	require.NoError(t, err)
	require.Len(t, debt, 1)
	assert.True(t, debt[0].Amount.Equal(decimal.NewFromInt(150)))
}

func TestRecordPaymentSendsIdempotencyKey(t *testing.T) {
	var got settlement.PaymentRecord
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/businesses/4/orders/77/payments", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get(IdempotencyHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))

	rec := settlement.PaymentRecord{
		BusinessID:     4,
		OrderID:        77,
		Payments:       []money.Payment{money.NewPayment(money.FromFloat(100, "USD"), money.PaymentWayCash)},
		AmountReturned: money.Zero("CUP"),
		IdempotencyKey: "key-1",
	}
	require.NoError(t, c.RecordPayment(context.Background(), rec))
	assert.Equal(t, int64(77), got.OrderID)
	require.Len(t, got.Payments, 1)
	assert.Equal(t, money.PaymentWayCash, got.Payments[0].Way)
}

func TestRecordPaymentConflict(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate", http.StatusConflict)
	}))
	err := c.RecordPayment(context.Background(), settlement.PaymentRecord{BusinessID: 4, OrderID: 1})
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "  "})
	require.Error(t, err)
}

func TestBusinessConfigFlag(t *testing.T) {
	cfg := BusinessConfig{ConfigurationsKey: []ConfigKey{{Key: "ENABLE_DELIVERY", Value: strconv.FormatBool(true)}}}
	assert.True(t, cfg.Flag(KeyEnableDelivery))
	assert.False(t, cfg.Flag(KeyIncludeTips))
}

type recordingObserver struct {
	ops  []string
	errs []error
}

func (r *recordingObserver) ObserveBackendCall(operation string, err error, elapsed time.Duration) {
	r.ops = append(r.ops, operation)
	r.errs = append(r.errs, err)
}

func TestObserverSeesEveryCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "order not found", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	obs := &recordingObserver{}
	c, err := NewClient(Options{BaseURL: srv.URL, Observer: obs})
	require.NoError(t, err)

	_, err = c.OrderDebt(context.Background(), 4, 77)
	require.Error(t, err)
	require.Equal(t, []string{"order"}, obs.ops)
	assert.ErrorIs(t, obs.errs[0], shared.ErrNotFound)
}
