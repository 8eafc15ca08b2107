package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/odyssey-erp/pos-backoffice/cmd/backofficectl/cli"
	"github.com/odyssey-erp/pos-backoffice/internal/app"
	"github.com/odyssey-erp/pos-backoffice/internal/backoffice"
	"github.com/odyssey-erp/pos-backoffice/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping cli startup")
		return
	}
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	code := cli.Run(ctx, os.Args[1:], cli.Deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Jobs: func() (cli.JobsAPI, error) {
			return cli.NewJobsCLI(redisAddr)
		},
		Rates: func() (cli.RateSource, error) {
			cfg, err := app.LoadConfig()
			if err != nil {
				return nil, err
			}
			return backoffice.NewClient(backoffice.Options{
				BaseURL: cfg.BackendURL,
				Token:   cfg.BackendToken,
				Timeout: cfg.BackendTimeout,
				Retry:   cfg.Resilience(),
			})
		},
		Migrate: func(dir string, direction db.Direction) (uint, error) {
			dsn := os.Getenv("PG_DSN")
			if dsn == "" {
				return 0, errors.New("PG_DSN must be set")
			}
			return db.Migrate(dsn, dir, direction)
		},
	})
	stop()
	os.Exit(code)
}
