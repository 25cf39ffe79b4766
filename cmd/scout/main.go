// Package main provides the entry point for the scout worker, which runs
// batch curation against the topic taxonomy.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/skimlabs/curation-service/internal/config"
	"github.com/skimlabs/curation-service/internal/curation"
	"github.com/skimlabs/curation-service/internal/database"
	"github.com/skimlabs/curation-service/internal/evaluator"
	"github.com/skimlabs/curation-service/internal/events"
	"github.com/skimlabs/curation-service/internal/gateway"
	"github.com/skimlabs/curation-service/internal/observability"
	"github.com/skimlabs/curation-service/internal/repository"
	"github.com/skimlabs/curation-service/internal/scout"
	"github.com/skimlabs/curation-service/internal/sources/arxiv"
	"github.com/skimlabs/curation-service/internal/sources/semanticscholar"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	mode := flag.String("mode", "nightly", "Run mode: nightly, backfill, repair, highlights")
	hub := flag.String("hub", "", "Discipline hub to backfill (empty means all hubs)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "scout-worker").Logger()
	logger.Info().Str("mode", *mode).Msg("scout worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := repository.NewPgCuratedPaperRepository(db)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("curation_service")
	}

	scholar := semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:    cfg.Sources.SemanticScholar.BaseURL,
		APIKey:     cfg.Sources.SemanticScholar.APIKey,
		Timeout:    cfg.Sources.SemanticScholar.Timeout,
		RateLimit:  cfg.Sources.SemanticScholar.RateLimit,
		MaxResults: cfg.Sources.SemanticScholar.MaxResults,
		Enabled:    cfg.Sources.SemanticScholar.Enabled,
		Metrics:    metrics,
	}, nil)
	arxivClient := arxiv.New(arxiv.Config{
		BaseURL:    cfg.Sources.ArXiv.BaseURL,
		Timeout:    cfg.Sources.ArXiv.Timeout,
		RateLimit:  cfg.Sources.ArXiv.RateLimit,
		MaxResults: cfg.Sources.ArXiv.MaxResults,
		Enabled:    cfg.Sources.ArXiv.Enabled,
		Metrics:    metrics,
	})
	eval := evaluator.NewGemini(cfg.Evaluator, metrics)

	curator := curation.New(scholar, arxivClient, eval, logger, metrics)
	gw := gateway.New(repo, logger, metrics)

	publisher := events.NewFromConfig(cfg.Kafka, logger)
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close event publisher")
		}
	}()

	sc := scout.New(curator, gw, repo, eval, publisher, cfg.Scout, logger, metrics)

	switch *mode {
	case "nightly":
		err = sc.RunNightlyLoop(ctx)
	case "backfill":
		err = sc.RunBackfill(ctx, *hub)
	case "repair":
		err = sc.RunRepair(ctx)
	case "highlights":
		err = sc.BackfillHighlights(ctx)
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scout %s run: %w", *mode, err)
	}

	logger.Info().Str("mode", *mode).Msg("scout worker finished")
	return nil
}
