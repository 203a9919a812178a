// Package migrations embeds the schema migrations and runs them with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"

	"accounts/internal/errors"
)

//go:embed *.sql
var FS embed.FS

const dialect = "postgres"

// Commands accepted by Run.
const (
	CommandUp      = "up"
	CommandDown    = "down"
	CommandStatus  = "status"
	CommandVersion = "version"
)

// goose entry points, replaced in tests.
var (
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.UpContext(ctx, db, dir)
	}
	gooseDown = func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.DownContext(ctx, db, dir)
	}
	gooseStatus = func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.StatusContext(ctx, db, dir)
	}
	gooseVersion = func(ctx context.Context, db *sql.DB) (int64, error) {
		return goose.GetDBVersionContext(ctx, db)
	}
)

func setup(logger *slog.Logger) error {
	goose.SetBaseFS(FS)
	if logger != nil {
		goose.SetLogger(&gooseLogger{logger: logger})
	}

	return goose.SetDialect(dialect)
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	return Run(ctx, db, logger, CommandUp)
}

// Run executes a goose command against db using the embedded migrations.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger, command string) error {
	if err := setup(logger); err != nil {
		return errors.Wrap(err, "configure goose")
	}

	switch command {
	case CommandUp:
		return errors.Wrap(gooseUp(ctx, db, "."), "apply migrations")
	case CommandDown:
		return errors.Wrap(gooseDown(ctx, db, "."), "roll back migration")
	case CommandStatus:
		return errors.Wrap(gooseStatus(ctx, db, "."), "migration status")
	case CommandVersion:
		version, err := gooseVersion(ctx, db)
		if err != nil {
			return errors.Wrap(err, "read schema version")
		}
		if logger != nil {
			logger.InfoContext(ctx, "Schema version", slog.Int64("version", version))
		}

		return nil
	default:
		return errors.Errorf("unknown migration command %q", command)
	}
}

// gooseLogger forwards goose output to slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error("goose", slog.String("message", strings.TrimSpace(fmt.Sprintf(format, v...))))
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.logger.Info("goose", slog.String("message", strings.TrimSpace(fmt.Sprintf(format, v...))))
}
