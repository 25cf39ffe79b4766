// Package main runs schema migrations for the curation service.
//
// Usage:
//
//	migrate [-path dir] up
//	migrate [-path dir] down
//	migrate [-path dir] steps N
//	migrate [-path dir] version
//	migrate [-path dir] force V
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/skimlabs/curation-service/internal/config"
	"github.com/skimlabs/curation-service/internal/database"
	"github.com/skimlabs/curation-service/internal/observability"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	pathOverride := fs.String("path", "", "Override the migrations directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	verb := fs.Arg(0)
	if verb == "" {
		return fmt.Errorf("usage: migrate [-path dir] up|down|steps N|version|force V")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Console output for the CLI regardless of service log settings.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}).With().Str("component", "migrate").Logger()

	dir := cfg.Database.MigrationPath
	if *pathOverride != "" {
		dir = *pathOverride
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, dir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch verb {
	case "up":
		logger.Info().Str("dir", dir).Msg("applying pending migrations")
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}

	case "down":
		logger.Warn().Msg("rolling back all migrations")
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}

	case "steps":
		n, err := strconv.Atoi(fs.Arg(1))
		if err != nil || n == 0 {
			return fmt.Errorf("steps requires a non-zero integer argument")
		}
		logger.Info().Int("steps", n).Msg("running migration steps")
		if err := migrator.Steps(n); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}

	case "version":
		// Fall through to the version report below.

	case "force":
		v, err := strconv.Atoi(fs.Arg(1))
		if err != nil || v < 0 {
			return fmt.Errorf("force requires a non-negative version argument")
		}
		logger.Warn().Int("version", v).Msg("forcing migration version")
		if err := migrator.Force(v); err != nil {
			return fmt.Errorf("force version: %w", err)
		}

	default:
		return fmt.Errorf("unknown command %q", verb)
	}

	reportVersion(migrator, logger)
	return nil
}

func reportVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("current migration version")
}
