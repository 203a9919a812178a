package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"accounts/config"
	logs "accounts/internal/infra/log"
	"accounts/internal/infra/persistence/migrations"
	"accounts/internal/infra/persistence/postgres"
)

// Supported commands:
// - up:      apply every pending migration
// - down:    roll back the most recent migration
// - status:  print applied and pending migrations
// - version: print the current schema version

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	if cfg.Postgres == nil {
		return errors.New("postgres configuration is missing")
	}

	logger, err := logs.New(logs.Params{Config: cfg})
	if err != nil {
		return err
	}

	db, err := postgres.Open(cfg, logger)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}
	defer sqlDB.Close()

	return migrations.Run(ctx, sqlDB, logger, command)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: migrate <up|down|status|version>")
}
