package money

import (
	"fmt"
	"strings"
)

// PaymentWay is the channel through which a payment was tendered.
type PaymentWay string

const (
	PaymentWayCash     PaymentWay = "CASH"
	PaymentWayTransfer PaymentWay = "TRANSFER"
	PaymentWayCard     PaymentWay = "CARD"

	// PaymentWayUnknown labels payments reported without a way.
	PaymentWayUnknown PaymentWay = "UNKNOWN"
)

// PaymentWays lists the supported ways in reporting order.
var PaymentWays = []PaymentWay{PaymentWayCash, PaymentWayTransfer, PaymentWayCard}

// Normalize upper-cases and trims the label. A blank label becomes PaymentWayUnknown.
func (w PaymentWay) Normalize() PaymentWay {
	way := PaymentWay(strings.ToUpper(strings.TrimSpace(string(w))))
	if way == "" {
		return PaymentWayUnknown
	}
	return way
}

// Known reports whether the normalised label is one of PaymentWays.
func (w PaymentWay) Known() bool {
	switch w.Normalize() {
	case PaymentWayCash, PaymentWayTransfer, PaymentWayCard:
		return true
	}
	return false
}

// ParsePaymentWay validates a payment way label.
func ParsePaymentWay(raw string) (PaymentWay, error) {
	way := PaymentWay(raw).Normalize()
	if !way.Known() {
		return "", fmt.Errorf("money: unsupported payment way %q", raw)
	}
	return way, nil
}

// Payment is a tendered amount together with its payment way.
type Payment struct {
	Money
	Way PaymentWay `json:"paymentWay"`
}

// NewPayment builds a Payment.
func NewPayment(amount Money, way PaymentWay) Payment {
	return Payment{Money: New(amount.Amount, amount.Currency), Way: way}
}

// MergePayments sums payments sharing currency and way, in order of first appearance.
func MergePayments(payments []Payment) []Payment {
	type key struct {
		code string
		way  PaymentWay
	}
	index := make(map[key]int, len(payments))
	out := make([]Payment, 0, len(payments))
	for _, p := range payments {
		k := key{code: NormalizeCode(p.Currency), way: p.Way.Normalize()}
		if i, ok := index[k]; ok {
			out[i].Amount = out[i].Amount.Add(p.Amount)
			continue
		}
		index[k] = len(out)
		out = append(out, Payment{Money: Money{Amount: p.Amount, Currency: k.code}, Way: k.way})
	}
	return out
}

// Amounts drops the payment way, keeping only the money.
func Amounts(payments []Payment) []Money {
	out := make([]Money, len(payments))
	for i, p := range payments {
		out[i] = p.Money
	}
	return out
}

// ByWay groups payments by normalised way and aggregates each group per currency.
func ByWay(payments []Payment) map[PaymentWay][]Money {
	grouped := make(map[PaymentWay][]Money)
	for _, p := range payments {
		way := p.Way.Normalize()
		grouped[way] = append(grouped[way], p.Money)
	}
	for way, list := range grouped {
		grouped[way] = Aggregate(list)
	}
	return grouped
}
