package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/pos-backoffice/internal/fx"
	jobmetrics "github.com/odyssey-erp/pos-backoffice/internal/jobs"
)

// RateSource loads the exchange rate table of a business.
type RateSource interface {
	Rates(ctx context.Context, businessID int64) (*fx.Table, error)
}

// RateGapScanJob validates the exchange rates of each business and reports the gaps.
type RateGapScanJob struct {
	Rates      RateSource
	Businesses []int64
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewRateGapScanJob constructs the job handler. businesses is the default scan scope.
func NewRateGapScanJob(rates RateSource, businesses []int64, logger *slog.Logger, metrics *jobmetrics.Metrics) *RateGapScanJob {
	return &RateGapScanJob{Rates: rates, Businesses: businesses, Logger: logger, Metrics: metrics}
}

// Handle processes TaskRateGapScan tasks. A business that cannot be loaded is logged and
// the scan continues; the task fails at the end so it is retried.
func (j *RateGapScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Rates == nil {
		return errors.New("rate gap scan: handler not configured")
	}
	var payload RateGapScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("rate gap scan: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	businesses := payload.BusinessIDs
	if len(businesses) == 0 {
		businesses = j.Businesses
	}

	tracker := j.metrics().Track(TaskRateGapScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	if len(businesses) == 0 {
		logger.Info("no businesses configured for rate gap scan")
		return resultErr
	}

	var failures []error
	gaps := 0
	for _, businessID := range businesses {
		found, err := j.scan(ctx, businessID)
		if err != nil {
			logger.Error("scan business rates", slog.Int64("business_id", businessID), slog.Any("error", err))
			failures = append(failures, fmt.Errorf("business %d: %w", businessID, err))
			continue
		}
		gaps += found
	}
	logger.Info("completed rate gap scan",
		slog.Int("businesses", len(businesses)),
		slog.Int("gaps", gaps),
		slog.Int("failed", len(failures)),
	)
	resultErr = errors.Join(failures...)
	return resultErr
}

func (j *RateGapScanJob) scan(ctx context.Context, businessID int64) (int, error) {
	table, err := j.Rates.Rates(ctx, businessID)
	if err != nil {
		return 0, err
	}
	res, err := fx.Validate(table, fx.RequireAll(table, fx.ModeSale, fx.ModeOfficial))
	if err != nil {
		return 0, err
	}
	for _, gap := range res.Gaps {
		modes := make([]string, len(gap.Modes))
		for i, mode := range gap.Modes {
			modes[i] = string(mode)
			j.metrics().AddRateGaps(string(mode), businessID, 1)
		}
		j.logger().Warn("exchange rate missing",
			slog.Int64("business_id", businessID),
			slog.String("currency", gap.Currency),
			slog.Any("modes", modes),
		)
	}
	return len(res.Gaps), nil
}

func (j *RateGapScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRateGapScan))
	}
	return slog.Default().With(slog.String("job", TaskRateGapScan))
}

func (j *RateGapScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
