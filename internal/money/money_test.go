package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestAggregatePreservesFirstAppearance(t *testing.T) {
	got := Aggregate([]Money{
		FromFloat(5, "USD"),
		FromFloat(3, "usd"),
		FromFloat(2, "EUR"),
	})
	require.Len(t, got, 2)
	assert.Equal(t, "USD", got[0].Currency)
	assert.True(t, got[0].Amount.Equal(d("8")))
	assert.Equal(t, "EUR", got[1].Currency)
	assert.True(t, got[1].Amount.Equal(d("2")))
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregateNetsMixedSigns(t *testing.T) {
	got := Aggregate([]Money{FromFloat(40, "CUP"), FromFloat(-40, "CUP"), FromFloat(1.5, "USD")})
	require.Len(t, got, 2)
	assert.True(t, got[0].IsZero(), "refund and sale in the same currency should net out")
	assert.Equal(t, "CUP", got[0].Currency)
}

func TestAggregateIdempotent(t *testing.T) {
	lists := [][]Money{
		{},
		{FromFloat(1, "USD")},
		{FromFloat(1.25, "USD"), FromFloat(3, "EUR"), FromFloat(-0.25, "USD"), FromFloat(0, "CUP")},
	}
	for _, list := range lists {
		once := Aggregate(list)
		twice := Aggregate(once)
		require.Len(t, twice, len(once))
		for i := range once {
			assert.True(t, once[i].Equal(twice[i]), "entry %d differs: %s vs %s", i, once[i], twice[i])
		}
	}
}

func TestAggregateCommutative(t *testing.T) {
	forward := []Money{FromFloat(5, "USD"), FromFloat(2, "EUR"), FromFloat(3, "USD"), FromFloat(7.5, "CUP")}
	reversed := make([]Money, len(forward))
	for i := range forward {
		reversed[len(forward)-1-i] = forward[i]
	}
	a := Aggregate(forward)
	b := Aggregate(reversed)
	require.Len(t, b, len(a))
	for _, entry := range a {
		assert.True(t, AmountOf(b, entry.Currency).Equal(entry.Amount), "currency %s", entry.Currency)
	}
}

func TestAddRejectsMismatch(t *testing.T) {
	_, err := FromFloat(1, "USD").Add(FromFloat(1, "EUR"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCurrencyMismatch))

	sum, err := Money{}.Add(FromFloat(2, "EUR"))
	require.NoError(t, err)
	assert.Equal(t, "EUR", sum.Currency)
}

func TestSubAndRound(t *testing.T) {
	got, err := FromFloat(10.005, "USD").Sub(FromFloat(0.001, "USD"))
	require.NoError(t, err)
	assert.True(t, got.RoundMinor().Amount.Equal(d("10")))
	assert.Equal(t, "10.00 USD", got.RoundMinor().String())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int32(2), MinorUnits("USD"))
	assert.Equal(t, int32(0), MinorUnits("JPY"))
	assert.Equal(t, int32(2), MinorUnits("not-a-code"))
}

func TestMergePayments(t *testing.T) {
	merged := MergePayments([]Payment{
		NewPayment(FromFloat(10, "USD"), PaymentWayCash),
		NewPayment(FromFloat(5, "USD"), PaymentWayTransfer),
		NewPayment(FromFloat(2.5, "usd"), PaymentWayCash),
	})
	require.Len(t, merged, 2)
	assert.Equal(t, PaymentWayCash, merged[0].Way)
	assert.True(t, merged[0].Amount.Equal(d("12.5")))
	assert.Equal(t, PaymentWayTransfer, merged[1].Way)

	byCurrency := Aggregate(Amounts(merged))
	require.Len(t, byCurrency, 1)
	assert.True(t, byCurrency[0].Amount.Equal(d("17.5")))
}

func TestByWay(t *testing.T) {
	grouped := ByWay([]Payment{
		NewPayment(FromFloat(10, "USD"), PaymentWayCash),
		NewPayment(FromFloat(100, "CUP"), PaymentWayCash),
		NewPayment(FromFloat(5, "USD"), PaymentWayCard),
		NewPayment(FromFloat(1, "USD"), PaymentWayCash),
	})
	require.Len(t, grouped[PaymentWayCash], 2)
	assert.True(t, AmountOf(grouped[PaymentWayCash], "USD").Equal(d("11")))
	assert.True(t, AmountOf(grouped[PaymentWayCard], "USD").Equal(d("5")))
	assert.Empty(t, grouped[PaymentWayTransfer])
}

func TestByWayNormalisesLabels(t *testing.T) {
	grouped := ByWay([]Payment{
		NewPayment(FromFloat(10, "USD"), "cash"),
		NewPayment(FromFloat(1, "USD"), PaymentWayCash),
		NewPayment(FromFloat(4, "USD"), " credit_point "),
		NewPayment(FromFloat(2, "USD"), ""),
	})
	assert.True(t, AmountOf(grouped[PaymentWayCash], "USD").Equal(d("11")))
	assert.True(t, AmountOf(grouped["CREDIT_POINT"], "USD").Equal(d("4")))
	assert.True(t, AmountOf(grouped[PaymentWayUnknown], "USD").Equal(d("2")))
	assert.Len(t, grouped, 3)
}

func TestPaymentWayKnown(t *testing.T) {
	assert.True(t, PaymentWay("Card").Known())
	assert.False(t, PaymentWay("CREDIT_POINT").Known())
	assert.False(t, PaymentWay("").Known())
	assert.Equal(t, PaymentWayUnknown, PaymentWay("  ").Normalize())
}

func TestParsePaymentWay(t *testing.T) {
	way, err := ParsePaymentWay(" transfer ")
	require.NoError(t, err)
	assert.Equal(t, PaymentWayTransfer, way)

	_, err = ParsePaymentWay("barter")
	require.Error(t, err)
}

func TestFilterZero(t *testing.T) {
	got := FilterZero([]Money{FromFloat(0, "USD"), FromFloat(2, "EUR"), Zero("CUP")})
	require.Len(t, got, 1)
	assert.Equal(t, "EUR", got[0].Currency)
}
