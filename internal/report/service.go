package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/pos-backoffice/internal/fx"
	"github.com/odyssey-erp/pos-backoffice/internal/money"
)

// Source loads the records a summary is built from.
type Source interface {
	Business(ctx context.Context, businessID int64) (Business, error)
	Orders(ctx context.Context, businessID int64, c Criteria) ([]Order, error)
	CashOperations(ctx context.Context, businessID int64, c Criteria) ([]CashOperation, error)
	BankTransactions(ctx context.Context, businessID int64, c Criteria) ([]BankTransaction, error)
}

// AreaSales is the sales breakdown of one area.
type AreaSales struct {
	AreaID     int64         `json:"areaId"`
	OrderCount int           `json:"orderCount"`
	SalesByWay []WaySales    `json:"salesByWay"`
	TotalSales []money.Money `json:"totalSales"`
}

// Service builds cached summaries from a Source.
type Service struct {
	source Source
	cache  *Cache
	policy fx.Policy
	logger *slog.Logger
}

// NewService constructs the report service. cache may be nil.
func NewService(source Source, cache *Cache, policy fx.Policy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, policy: policy, logger: logger}
}

// CycleSummary returns the summary of an economic cycle.
func (s *Service) CycleSummary(ctx context.Context, businessID, cycleID int64) (Summary, error) {
	criteria, err := NewCriteria(CycleFilter{CycleID: cycleID})
	if err != nil {
		return Summary{}, err
	}
	return s.summary(ctx, businessID, criteria, "cycle", strconv.FormatInt(cycleID, 10))
}

// RangeSummary returns the summary of the records matching criteria.
func (s *Service) RangeSummary(ctx context.Context, businessID int64, criteria Criteria) (Summary, error) {
	if _, ok := criteria.Range(); !ok {
		return Summary{}, fmt.Errorf("%w: date range required", ErrInvalidFilter)
	}
	return s.summary(ctx, businessID, criteria, "range", criteria.Key())
}

// Invalidate drops every cached summary of a business.
func (s *Service) Invalidate(ctx context.Context, businessID int64) error {
	return s.cache.Bump(ctx, businessID)
}

func (s *Service) summary(ctx context.Context, businessID int64, criteria Criteria, parts ...string) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, businessID, append([]string{"summary"}, parts...)...)
	if err != nil {
		return Summary{}, err
	}
	var out Summary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.compute(ctx, businessID, criteria)
	})
	return out, err
}

func (s *Service) compute(ctx context.Context, businessID int64, criteria Criteria) (Summary, error) {
	var (
		business Business
		orders   []Order
		cashOps  []CashOperation
		bankTxs  []BankTransaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		business, err = s.source.Business(gctx, businessID)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.source.Orders(gctx, businessID, criteria)
		return err
	})
	g.Go(func() error {
		var err error
		cashOps, err = s.source.CashOperations(gctx, businessID, criteria)
		return err
	})
	g.Go(func() error {
		var err error
		bankTxs, err = s.source.BankTransactions(gctx, businessID, criteria)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("report: load business %d: %w", businessID, err)
	}
	engine := NewEngine(business.Rates, business.CostCurrency, s.policy)
	summary := engine.Summarize(Input{
		Orders:           criteria.Apply(IndexOrders(orders)).Orders(),
		CashOperations:   cashOps,
		BankTransactions: bankTxs,
	}, business.Config)
	if len(summary.Warnings) > 0 {
		s.logger.Warn("summary computed with warnings",
			slog.Int64("business_id", businessID),
			slog.Any("warnings", summary.Warnings),
		)
	}
	return summary, nil
}

// AreaSales fetches each area concurrently and returns the results sorted by area id.
func (s *Service) AreaSales(ctx context.Context, businessID, cycleID int64, areaIDs []int64) ([]AreaSales, error) {
	if len(areaIDs) == 0 {
		return []AreaSales{}, nil
	}
	business, err := s.source.Business(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("report: load business %d: %w", businessID, err)
	}
	engine := NewEngine(business.Rates, business.CostCurrency, s.policy)

	ids := dedupeIDs(areaIDs)
	results := make([]AreaSales, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, areaID := range ids {
		g.Go(func() error {
			criteria, err := NewCriteria(CycleFilter{CycleID: cycleID}, AreaFilter{AreaIDs: []int64{areaID}})
			if err != nil {
				return err
			}
			orders, err := s.source.Orders(gctx, businessID, criteria)
			if err != nil {
				return fmt.Errorf("area %d: %w", areaID, err)
			}
			matched := criteria.Apply(IndexOrders(orders)).Orders()
			sum := engine.Summarize(Input{Orders: matched}, business.Config)
			results[i] = AreaSales{
				AreaID:     areaID,
				OrderCount: sum.OrderCount,
				SalesByWay: sum.SalesByWay,
				TotalSales: sum.TotalSales,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("report: area sales: %w", err)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].AreaID < results[j].AreaID })
	return results, nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
