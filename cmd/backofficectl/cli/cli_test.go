package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pos-backoffice/internal/fx"
	"github.com/odyssey-erp/pos-backoffice/internal/platform/db"
)

type stubRates map[int64]*fx.Table

func (s stubRates) Rates(ctx context.Context, businessID int64) (*fx.Table, error) {
	table, ok := s[businessID]
	if !ok {
		return nil, errors.New("business not found")
	}
	return table, nil
}

func rates() stubRates {
	return stubRates{
		1: fx.MustTable(
			fx.Rate{Code: "CUP", IsMain: true, ExchangeRate: decimal.NewFromInt(1)},
			fx.Rate{Code: "USD", ExchangeRate: decimal.NewFromInt(120), OfficialExchangeRate: decimal.NewFromInt(24)},
		),
		2: fx.MustTable(
			fx.Rate{Code: "CUP", IsMain: true, ExchangeRate: decimal.NewFromInt(1)},
			fx.Rate{Code: "MLC"},
		),
	}
}

type stubJobs struct {
	closeouts [][2]int64
	scans     [][]int64
	closed    bool
}

func (s *stubJobs) TriggerCloseout(ctx context.Context, businessID, cycleID int64) (*asynq.TaskInfo, error) {
	s.closeouts = append(s.closeouts, [2]int64{businessID, cycleID})
	return &asynq.TaskInfo{ID: "c1", Type: "cycle:closeout", Queue: "default"}, nil
}

func (s *stubJobs) TriggerGapScan(ctx context.Context, businessIDs []int64) (*asynq.TaskInfo, error) {
	s.scans = append(s.scans, businessIDs)
	return &asynq.TaskInfo{ID: "g1", Type: "fx:gap_scan", Queue: "default"}, nil
}

func (s *stubJobs) InspectQueue(ctx context.Context) (QueueStats, error) {
	return QueueStats{Queue: "default", Pending: 2}, nil
}

func (s *stubJobs) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	return nil, nil
}

func (s *stubJobs) Close() error {
	s.closed = true
	return nil
}

func run(t *testing.T, jobs *stubJobs, args ...string) (int, string, string) {
	t.Helper()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	code := Run(context.Background(), args, Deps{
		Stdout: stdout,
		Stderr: stderr,
		Jobs:   func() (JobsAPI, error) { return jobs, nil },
		Rates:  func() (RateSource, error) { return rates(), nil },
	})
	return code, stdout.String(), stderr.String()
}

func TestRatesValidateJSONSuccess(t *testing.T) {
	code, stdout, stderr := run(t, nil, "rates", "validate", "--business", "1", "--json")
	require.Zero(t, code)
	require.Empty(t, stderr)

	var summary RatesValidateSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	require.True(t, summary.OK)
	require.Equal(t, "CUP", summary.MainCurrency)
	require.Empty(t, summary.Gaps)
	require.Len(t, summary.Available, 4)
}

func TestRatesValidateJSONGaps(t *testing.T) {
	code, stdout, stderr := run(t, nil, "rates", "validate", "--business", "2", "--json")
	require.Equal(t, ExitGaps, code)
	require.Empty(t, stderr)

	var summary RatesValidateSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	require.False(t, summary.OK)
	require.Equal(t, []RateValidationGap{{Currency: "MLC", Mode: "official"}, {Currency: "MLC", Mode: "sale"}}, summary.Gaps)
}

func TestRatesValidateHuman(t *testing.T) {
	code, stdout, _ := run(t, nil, "rates", "validate", "--business", "2", "--mode", "sale")
	require.Equal(t, ExitGaps, code)
	require.Contains(t, stdout, "1 gap(s) detected")
	require.Contains(t, stdout, "MLC missing sale")
}

func TestRatesValidateErrors(t *testing.T) {
	code, _, stderr := run(t, nil, "rates", "validate")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "--business is required")

	code, _, stderr = run(t, nil, "rates", "validate", "--business", "9")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "business not found")

	code, _, _ = run(t, nil, "rates", "validate", "--business", "1", "--mode", "spot")
	require.Equal(t, 2, code)
}

func TestJobsTrigger(t *testing.T) {
	jobs := &stubJobs{}
	code, stdout, stderr := run(t, jobs, "jobs", "trigger", "closeout", "--business", "4", "--cycle", "9")
	require.Zero(t, code, stderr)
	require.Contains(t, stdout, "enqueued cycle:closeout id=c1")
	require.Equal(t, [][2]int64{{4, 9}}, jobs.closeouts)
	require.True(t, jobs.closed)

	code, _, _ = run(t, jobs, "jobs", "trigger", "gapscan", "--business", "1,2")
	require.Zero(t, code)
	require.Equal(t, [][]int64{{1, 2}}, jobs.scans)

	code, _, stderr = run(t, jobs, "jobs", "trigger", "closeout", "--business", "4")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "--cycle are required")

	code, _, _ = run(t, jobs, "jobs", "trigger", "reindex")
	require.Equal(t, 2, code)
}

func TestJobsInspect(t *testing.T) {
	code, stdout, _ := run(t, &stubJobs{}, "jobs", "inspect")
	require.Zero(t, code)
	var stats QueueStats
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	require.Equal(t, 2, stats.Pending)
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := run(t, nil, "deploy")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "usage")
}

func TestMigrate(t *testing.T) {
	var gotDir string
	var gotDirection db.Direction
	deps := Deps{
		Migrate: func(dir string, direction db.Direction) (uint, error) {
			gotDir, gotDirection = dir, direction
			return 1, nil
		},
	}
	var stdout, stderr bytes.Buffer
	deps.Stdout, deps.Stderr = &stdout, &stderr

	code := Run(context.Background(), []string{"migrate", "up", "--dir", "db/sql"}, deps)
	require.Zero(t, code, stderr.String())
	require.Equal(t, "db/sql", gotDir)
	require.Equal(t, db.Up, gotDirection)
	require.Contains(t, stdout.String(), "schema version 1")

	code = Run(context.Background(), []string{"migrate", "sideways"}, deps)
	require.Equal(t, 2, code)

	deps.Migrate = func(string, db.Direction) (uint, error) { return 0, errors.New("dirty") }
	code = Run(context.Background(), []string{"migrate", "down"}, deps)
	require.Equal(t, 1, code)
}
