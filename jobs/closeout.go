package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/pos-backoffice/internal/jobs"
	"github.com/odyssey-erp/pos-backoffice/internal/money"
	"github.com/odyssey-erp/pos-backoffice/internal/report"
)

// CloseoutReports is the part of the report service the close-out job needs.
type CloseoutReports interface {
	Invalidate(ctx context.Context, businessID int64) error
	CycleSummary(ctx context.Context, businessID, cycleID int64) (report.Summary, error)
}

// CycleCloseoutJob rebuilds and caches the summary of a closed cycle.
type CycleCloseoutJob struct {
	Reports CloseoutReports
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewCycleCloseoutJob constructs the job handler.
func NewCycleCloseoutJob(reports CloseoutReports, logger *slog.Logger, metrics *jobmetrics.Metrics) *CycleCloseoutJob {
	return &CycleCloseoutJob{
		Reports: reports,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskCycleCloseout tasks.
func (j *CycleCloseoutJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("cycle closeout: handler not configured")
	}
	var payload CycleCloseoutPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("cycle closeout: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.BusinessID <= 0 || payload.CycleID <= 0 {
		return fmt.Errorf("cycle closeout: invalid payload: %w", asynq.SkipRetry)
	}

	start := j.now()
	tracker := j.metrics().Track(TaskCycleCloseout)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.Int64("business_id", payload.BusinessID),
		slog.Int64("cycle_id", payload.CycleID),
	)

	if err := j.Reports.Invalidate(ctx, payload.BusinessID); err != nil {
		resultErr = err
		logger.Error("invalidate cached summaries", slog.Any("error", err))
		return resultErr
	}
	summary, err := j.Reports.CycleSummary(ctx, payload.BusinessID, payload.CycleID)
	if err != nil {
		resultErr = err
		logger.Error("build cycle summary", slog.Any("error", err))
		return resultErr
	}

	attrs := []any{
		slog.Int("orders", summary.OrderCount),
		slog.String("total_sales", formatTotals(summary.TotalSales)),
		slog.String("cash_in_register", formatTotals(summary.CashInRegister)),
		slog.Duration("duration", j.now().Sub(start)),
	}
	if summary.Revenue.Available {
		attrs = append(attrs, slog.String("revenue", summary.Revenue.Money.String()))
	} else {
		attrs = append(attrs, slog.String("revenue", "unavailable"))
	}
	if len(summary.Warnings) > 0 {
		attrs = append(attrs, slog.Any("warnings", summary.Warnings))
	}
	j.metrics().ObserveCloseout(summary.Revenue.Available)
	logger.Info("cycle closed out", attrs...)
	return resultErr
}

func formatTotals(totals []money.Money) string {
	totals = money.FilterZero(totals)
	if len(totals) == 0 {
		return "-"
	}
	parts := make([]string, len(totals))
	for i, m := range totals {
		parts[i] = m.String()
	}
	return strings.Join(parts, ", ")
}

func (j *CycleCloseoutJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCycleCloseout))
	}
	return slog.Default().With(slog.String("job", TaskCycleCloseout))
}

func (j *CycleCloseoutJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CycleCloseoutJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
