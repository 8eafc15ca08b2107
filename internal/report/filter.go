package report

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/pos-backoffice/internal/money"
	"github.com/odyssey-erp/pos-backoffice/internal/shared"
)

// ErrInvalidFilter indicates report criteria failed validation.
var ErrInvalidFilter = fmt.Errorf("%w: report: invalid filter", shared.ErrValidation)

// FilterKind discriminates the filter union.
type FilterKind string

const (
	KindDateRange FilterKind = "date_range"
	KindCycle     FilterKind = "cycle"
	KindArea      FilterKind = "area"
	KindCurrency  FilterKind = "currency"
	KindCoupon    FilterKind = "coupon"
)

// Filter is one report criterion. The set of implementations is closed.
type Filter interface {
	Kind() FilterKind
	match(o Order) bool
}

// DateRange keeps orders created in [From, To).
type DateRange struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtfield=From"`
}

// CycleFilter keeps orders of one economic cycle.
type CycleFilter struct {
	CycleID int64 `validate:"gt=0"`
}

// AreaFilter keeps orders of the listed areas.
type AreaFilter struct {
	AreaIDs []int64 `validate:"required,min=1,dive,gt=0"`
}

// CurrencyFilter keeps orders priced or paid in a currency.
type CurrencyFilter struct {
	Code string `validate:"required,alphanum,min=3,max=8"`
}

// CouponFilter keeps orders that used a coupon code.
type CouponFilter struct {
	Code string `validate:"required,max=64"`
}

func (DateRange) Kind() FilterKind      { return KindDateRange }
func (CycleFilter) Kind() FilterKind    { return KindCycle }
func (AreaFilter) Kind() FilterKind     { return KindArea }
func (CurrencyFilter) Kind() FilterKind { return KindCurrency }
func (CouponFilter) Kind() FilterKind   { return KindCoupon }

func (f DateRange) match(o Order) bool {
	return !o.CreatedAt.Before(f.From) && o.CreatedAt.Before(f.To)
}

func (f CycleFilter) match(o Order) bool {
	return o.EconomicCycleID == f.CycleID
}

func (f AreaFilter) match(o Order) bool {
	for _, id := range f.AreaIDs {
		if o.AreaID == id {
			return true
		}
	}
	return false
}

func (f CurrencyFilter) match(o Order) bool {
	code := money.NormalizeCode(f.Code)
	for _, p := range o.Prices {
		if p.Currency == code {
			return true
		}
	}
	for _, p := range o.CurrenciesPayment {
		if p.Currency == code {
			return true
		}
	}
	return false
}

func (f CouponFilter) match(o Order) bool {
	for _, c := range o.CouponCodes {
		if strings.EqualFold(c, f.Code) {
			return true
		}
	}
	return false
}

var validate = validator.New()

// Criteria is a validated set of filters, at most one per kind.
type Criteria struct {
	filters []Filter
}

// NewCriteria validates filters and rejects duplicate kinds.
func NewCriteria(filters ...Filter) (Criteria, error) {
	seen := make(map[FilterKind]struct{}, len(filters))
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f == nil {
			continue
		}
		if _, dup := seen[f.Kind()]; dup {
			return Criteria{}, fmt.Errorf("%w: duplicate %s filter", ErrInvalidFilter, f.Kind())
		}
		seen[f.Kind()] = struct{}{}
		if err := validate.Struct(f); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
				return Criteria{}, fmt.Errorf("%w: %s: %s failed on %s", ErrInvalidFilter, f.Kind(), fieldErrs[0].Field(), fieldErrs[0].Tag())
			}
			return Criteria{}, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, f.Kind(), err)
		}
		out = append(out, normalize(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind() < out[j].Kind() })
	return Criteria{filters: out}, nil
}

func normalize(f Filter) Filter {
	switch v := f.(type) {
	case CurrencyFilter:
		v.Code = money.NormalizeCode(v.Code)
		return v
	case AreaFilter:
		ids := append([]int64(nil), v.AreaIDs...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		v.AreaIDs = ids
		return v
	case DateRange:
		v.From, v.To = v.From.UTC(), v.To.UTC()
		return v
	}
	return f
}

// Filters returns the criteria sorted by kind.
func (c Criteria) Filters() []Filter {
	return append([]Filter(nil), c.filters...)
}

// With returns a copy of the criteria with f added. It fails when f's kind is already present.
func (c Criteria) With(f Filter) (Criteria, error) {
	return NewCriteria(append(c.Filters(), f)...)
}

// Match reports whether an order satisfies every filter.
func (c Criteria) Match(o Order) bool {
	for _, f := range c.filters {
		if !f.match(o) {
			return false
		}
	}
	return true
}

// Apply drops the orders that do not match.
func (c Criteria) Apply(set OrderSet) OrderSet {
	for _, o := range set.Orders() {
		if !c.Match(o) {
			set = set.RemoveOrder(o.ID)
		}
	}
	return set
}

// Range returns the date range filter, if any.
func (c Criteria) Range() (DateRange, bool) {
	for _, f := range c.filters {
		if v, ok := f.(DateRange); ok {
			return v, true
		}
	}
	return DateRange{}, false
}

// Values encodes the criteria as query parameters.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	for _, f := range c.filters {
		switch f := f.(type) {
		case DateRange:
			v.Set("from", f.From.Format(time.RFC3339))
			v.Set("to", f.To.Format(time.RFC3339))
		case CycleFilter:
			v.Set("economicCycleId", strconv.FormatInt(f.CycleID, 10))
		case AreaFilter:
			ids := make([]string, len(f.AreaIDs))
			for i, id := range f.AreaIDs {
				ids[i] = strconv.FormatInt(id, 10)
			}
			v.Set("areaId", strings.Join(ids, ","))
		case CurrencyFilter:
			v.Set("currency", f.Code)
		case CouponFilter:
			v.Set("coupon", f.Code)
		}
	}
	return v
}

// Key is a stable cache key fragment for the criteria.
func (c Criteria) Key() string {
	if len(c.filters) == 0 {
		return "all"
	}
	return c.Values().Encode()
}

// ParseCriteria reads from, to, area, currency and coupon query parameters. Dates accept
// RFC 3339 or YYYY-MM-DD; a bare To date includes the whole day.
func ParseCriteria(q url.Values) (Criteria, error) {
	var filters []Filter
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from != "" || to != "" {
		start, err := parseDate(from, false)
		if err != nil {
			return Criteria{}, fmt.Errorf("%w: from: %v", ErrInvalidFilter, err)
		}
		end, err := parseDate(to, true)
		if err != nil {
			return Criteria{}, fmt.Errorf("%w: to: %v", ErrInvalidFilter, err)
		}
		filters = append(filters, DateRange{From: start, To: end})
	}
	if raw := strings.TrimSpace(q.Get("area")); raw != "" {
		ids, err := ParseIDs(raw)
		if err != nil {
			return Criteria{}, fmt.Errorf("%w: area: %v", ErrInvalidFilter, err)
		}
		filters = append(filters, AreaFilter{AreaIDs: ids})
	}
	if raw := strings.TrimSpace(q.Get("currency")); raw != "" {
		filters = append(filters, CurrencyFilter{Code: raw})
	}
	if raw := strings.TrimSpace(q.Get("coupon")); raw != "" {
		filters = append(filters, CouponFilter{Code: raw})
	}
	return NewCriteria(filters...)
}

// ParseIDs parses a comma separated list of positive ids.
func ParseIDs(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
