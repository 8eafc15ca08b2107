package report

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pos-backoffice/internal/money"
	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

func TestNewCriteriaValidates(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		filters []Filter
	}{
		{"inverted range", []Filter{DateRange{From: from, To: from.Add(-time.Hour)}}},
		{"missing range end", []Filter{DateRange{From: from}}},
		{"zero cycle", []Filter{CycleFilter{}}},
		{"empty areas", []Filter{AreaFilter{}}},
		{"negative area", []Filter{AreaFilter{AreaIDs: []int64{-1}}}},
		{"bad currency", []Filter{CurrencyFilter{Code: "U$"}}},
		{"empty coupon", []Filter{CouponFilter{}}},
		{"duplicate kind", []Filter{CycleFilter{CycleID: 1}, CycleFilter{CycleID: 2}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCriteria(tc.filters...)
			require.ErrorIs(t, err, ErrInvalidFilter)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestCriteriaMatch(t *testing.T) {
	created := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)
	order := Order{
		ID:                1,
		EconomicCycleID:   4,
		AreaID:            2,
		CreatedAt:         created,
		Prices:            []money.Money{money.FromFloat(5, "USD")},
		CurrenciesPayment: []money.Payment{money.NewPayment(money.FromFloat(600, "CUP"), money.PaymentWayCash)},
		CouponCodes:       []string{"SPRING"},
	}
	match, err := NewCriteria(
		DateRange{From: created.Add(-time.Hour), To: created.Add(time.Hour)},
		CycleFilter{CycleID: 4},
		AreaFilter{AreaIDs: []int64{3, 2}},
		CurrencyFilter{Code: "cup"},
		CouponFilter{Code: "spring"},
	)
	require.NoError(t, err)
	assert.True(t, match.Match(order))

	for _, f := range []Filter{
		DateRange{From: created.Add(time.Hour), To: created.Add(2 * time.Hour)},
		CycleFilter{CycleID: 5},
		AreaFilter{AreaIDs: []int64{1}},
		CurrencyFilter{Code: "EUR"},
		CouponFilter{Code: "WINTER"},
	} {
		c, err := NewCriteria(f)
		require.NoError(t, err)
		assert.False(t, c.Match(order), "%s should not match", f.Kind())
	}
}

func TestCriteriaRangeIsHalfOpen(t *testing.T) {
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	c, err := NewCriteria(DateRange{From: from, To: to})
	require.NoError(t, err)
	assert.True(t, c.Match(Order{CreatedAt: from}))
	assert.False(t, c.Match(Order{CreatedAt: to}))
}

func TestParseCriteria(t *testing.T) {
	q := url.Values{}
	q.Set("from", "2024-03-01")
	q.Set("to", "2024-03-31")
	q.Set("area", "5, 2")
	q.Set("currency", "usd")
	c, err := ParseCriteria(q)
	require.NoError(t, err)

	rng, ok := c.Range()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), rng.To)
	assert.Len(t, c.Filters(), 3)

	values := c.Values()
	assert.Equal(t, "2,5", values.Get("areaId"))
	assert.Equal(t, "USD", values.Get("currency"))
	assert.Equal(t, c.Key(), c.Values().Encode())
}

func TestParseCriteriaErrors(t *testing.T) {
	for _, raw := range []string{"from=2024-01-01", "from=yesterday&to=2024-01-01", "area=1,x", "from=2024-02-01&to=2024-01-01"} {
		q, err := url.ParseQuery(raw)
		require.NoError(t, err)
		_, err = ParseCriteria(q)
		assert.ErrorIs(t, err, ErrInvalidFilter, raw)
	}
}

func TestCriteriaWith(t *testing.T) {
	c, err := NewCriteria(CycleFilter{CycleID: 1})
	require.NoError(t, err)
	_, err = c.With(CycleFilter{CycleID: 2})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	next, err := c.With(AreaFilter{AreaIDs: []int64{1}})
	require.NoError(t, err)
	assert.Len(t, next.Filters(), 2)
	assert.Len(t, c.Filters(), 1)
	assert.Equal(t, "all", Criteria{}.Key())
}
