// Package cli implements the backofficectl operator commands.
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/pos-backoffice/internal/fx"
	"github.com/odyssey-erp/pos-backoffice/internal/platform/db"
	"github.com/odyssey-erp/pos-backoffice/internal/report"
)

// JobsAPI is what the jobs commands need from the queue.
type JobsAPI interface {
	TriggerCloseout(ctx context.Context, businessID, cycleID int64) (*asynq.TaskInfo, error)
	TriggerGapScan(ctx context.Context, businessIDs []int64) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context) (QueueStats, error)
	ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error)
	Close() error
}

// Deps lazily builds the collaborators of a command so that e.g. `rates` never dials Redis.
type Deps struct {
	Stdout io.Writer
	Stderr io.Writer
	Jobs   func() (JobsAPI, error)
	Rates  func() (RateSource, error)
	// Migrate applies or rolls back the schema in dir.
	Migrate func(dir string, direction db.Direction) (uint, error)
}

const usage = `usage: backofficectl <command> [flags]

commands:
  jobs trigger closeout --business N --cycle N
  jobs trigger gapscan [--business N,M]
  jobs inspect [--scheduled N]
  rates validate --business N [--mode sale,official] [--json]
  migrate up|down [--dir migrations]
`

// Run dispatches args and returns the process exit code.
func Run(ctx context.Context, args []string, deps Deps) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(deps.Stderr, usage)
		return 2
	}
	switch args[0] {
	case "jobs":
		return runJobs(ctx, args[1:], deps)
	case "rates":
		return runRates(ctx, args[1:], deps)
	case "migrate":
		return runMigrate(args[1:], deps)
	case "help", "-h", "--help":
		_, _ = fmt.Fprint(deps.Stdout, usage)
		return 0
	default:
		_, _ = fmt.Fprintf(deps.Stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}
}

func runJobs(ctx context.Context, args []string, deps Deps) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(deps.Stderr, usage)
		return 2
	}
	switch args[0] {
	case "trigger":
		return runJobsTrigger(ctx, args[1:], deps)
	case "inspect":
		fs := newFlagSet("jobs inspect", deps.Stderr)
		scheduled := fs.Int("scheduled", 0, "also list up to N scheduled tasks")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return withJobs(deps, func(api JobsAPI) int {
			stats, err := api.InspectQueue(ctx)
			if err != nil {
				_, _ = fmt.Fprintf(deps.Stderr, "jobs inspect: %v\n", err)
				return 1
			}
			_ = json.NewEncoder(deps.Stdout).Encode(stats)
			if *scheduled <= 0 {
				return 0
			}
			tasks, err := api.ListScheduled(ctx, *scheduled)
			if err != nil {
				_, _ = fmt.Fprintf(deps.Stderr, "jobs inspect: %v\n", err)
				return 1
			}
			for _, task := range tasks {
				_, _ = fmt.Fprintf(deps.Stdout, "%s %s next=%s\n", task.ID, task.Type, task.NextProcessAt.Format("2006-01-02T15:04:05Z07:00"))
			}
			return 0
		})
	default:
		_, _ = fmt.Fprintf(deps.Stderr, "unknown jobs command %q\n", args[0])
		return 2
	}
}

func runJobsTrigger(ctx context.Context, args []string, deps Deps) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(deps.Stderr, "jobs trigger: job name required (closeout, gapscan)")
		return 2
	}
	name := args[0]
	fs := newFlagSet("jobs trigger "+name, deps.Stderr)
	business := fs.String("business", "", "business id (comma separated for gapscan)")
	cycleID := fs.Int64("cycle", 0, "economic cycle id")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	ids, err := report.ParseIDs(*business)
	if err != nil {
		_, _ = fmt.Fprintf(deps.Stderr, "jobs trigger: --business: %v\n", err)
		return 2
	}

	return withJobs(deps, func(api JobsAPI) int {
		var (
			info *asynq.TaskInfo
			err  error
		)
		switch name {
		case "closeout":
			if len(ids) != 1 || *cycleID <= 0 {
				_, _ = fmt.Fprintln(deps.Stderr, "jobs trigger closeout: --business and --cycle are required")
				return 2
			}
			info, err = api.TriggerCloseout(ctx, ids[0], *cycleID)
		case "gapscan":
			info, err = api.TriggerGapScan(ctx, ids)
		default:
			_, _ = fmt.Fprintf(deps.Stderr, "jobs trigger: unsupported job %q\n", name)
			return 2
		}
		if err != nil {
			_, _ = fmt.Fprintf(deps.Stderr, "jobs trigger %s: %v\n", name, err)
			return 1
		}
		_, _ = fmt.Fprintf(deps.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	})
}

func runRates(ctx context.Context, args []string, deps Deps) int {
	if len(args) == 0 || args[0] != "validate" {
		_, _ = fmt.Fprint(deps.Stderr, usage)
		return 2
	}
	fs := newFlagSet("rates validate", deps.Stderr)
	businessID := fs.Int64("business", 0, "business id")
	modeList := fs.String("mode", "sale,official", "rate modes to require")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	var modes []fx.Mode
	for _, raw := range strings.Split(*modeList, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		mode, err := fx.ParseMode(raw)
		if err != nil {
			_, _ = fmt.Fprintf(deps.Stderr, "rates validate: %v\n", err)
			return 2
		}
		modes = append(modes, mode)
	}
	if deps.Rates == nil {
		_, _ = fmt.Fprintln(deps.Stderr, "rates validate: backend not configured")
		return 1
	}
	source, err := deps.Rates()
	if err != nil {
		_, _ = fmt.Fprintf(deps.Stderr, "rates validate: %v\n", err)
		return 1
	}
	ratesCLI, err := NewRatesCLI(source)
	if err != nil {
		_, _ = fmt.Fprintf(deps.Stderr, "rates validate: %v\n", err)
		return 1
	}
	return ratesCLI.ValidateCommand(ctx, RatesValidateOptions{
		BusinessID: *businessID,
		Modes:      modes,
		JSONOutput: *jsonOut,
		Stdout:     deps.Stdout,
		Stderr:     deps.Stderr,
	})
}

func runMigrate(args []string, deps Deps) int {
	if len(args) == 0 {
		_, _ = fmt.Fprint(deps.Stderr, usage)
		return 2
	}
	direction, err := db.ParseDirection(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(deps.Stderr, "migrate: %v\n", err)
		return 2
	}
	fs := newFlagSet("migrate "+string(direction), deps.Stderr)
	dir := fs.String("dir", "migrations", "migrations directory")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if deps.Migrate == nil {
		_, _ = fmt.Fprintln(deps.Stderr, "migrate: database not configured")
		return 1
	}
	version, err := deps.Migrate(*dir, direction)
	if err != nil {
		_, _ = fmt.Fprintf(deps.Stderr, "migrate %s: %v\n", direction, err)
		return 1
	}
	_, _ = fmt.Fprintf(deps.Stdout, "schema version %d\n", version)
	return 0
}

func withJobs(deps Deps, fn func(JobsAPI) int) int {
	if deps.Jobs == nil {
		_, _ = fmt.Fprintln(deps.Stderr, "jobs: queue not configured")
		return 1
	}
	api, err := deps.Jobs()
	if err != nil {
		_, _ = fmt.Fprintf(deps.Stderr, "jobs: %v\n", err)
		return 1
	}
	defer func() { _ = api.Close() }()
	return fn(api)
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}
