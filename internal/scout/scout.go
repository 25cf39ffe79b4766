// Package scout runs the batch curation passes: the nightly topic scan,
// the historical backfill, and the repair passes that re-enrich rows the
// evaluator previously left incomplete.
//
// Every pass is best-effort per topic and per record. A failed search,
// evaluation, or save is logged and skipped; a scouting run only ends
// early when its context is cancelled.
package scout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skimlabs/curation-service/internal/config"
	"github.com/skimlabs/curation-service/internal/curation"
	"github.com/skimlabs/curation-service/internal/domain"
	"github.com/skimlabs/curation-service/internal/evaluator"
	"github.com/skimlabs/curation-service/internal/events"
	"github.com/skimlabs/curation-service/internal/gateway"
	"github.com/skimlabs/curation-service/internal/observability"
	"github.com/skimlabs/curation-service/internal/repository"
	"github.com/skimlabs/curation-service/internal/topics"
)

// minRepairTextLen is the minimum source-text length worth re-evaluating.
// Shorter fragments produce garbage reviews.
const minRepairTextLen = 50

// repairBatchLimit caps how many rows a single repair pass scans.
const repairBatchLimit = 200

// Curator produces curated papers for a topic. *curation.Service satisfies it.
type Curator interface {
	CuratedFeed(ctx context.Context, topic string, limit int) []*domain.CuratedPaper
	HistoricalFeed(ctx context.Context, topic string, yearStart, limit int) []*domain.CuratedPaper
}

// Saver persists curated papers. *gateway.Gateway satisfies it.
type Saver interface {
	Save(ctx context.Context, paper *domain.CuratedPaper) gateway.Outcome
}

// Scout drives the batch curation passes.
type Scout struct {
	curator   Curator
	gw        Saver
	repo      repository.CuratedPaperRepository
	eval      evaluator.Evaluator
	publisher events.Publisher
	logger    zerolog.Logger
	metrics   *observability.Metrics
	cfg       config.ScoutConfig

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a scout. metrics may be nil; publisher may be a no-op.
func New(
	curator Curator,
	gw Saver,
	repo repository.CuratedPaperRepository,
	eval evaluator.Evaluator,
	publisher events.Publisher,
	cfg config.ScoutConfig,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Scout {
	return &Scout{
		curator:   curator,
		gw:        gw,
		repo:      repo,
		eval:      eval,
		publisher: publisher,
		logger:    logger.With().Str("component", "scout").Logger(),
		metrics:   metrics,
		cfg:       cfg,
		sleep:     sleepContext,
	}
}

// RunNightly scans every topic in the taxonomy once, curating up to the
// nightly per-topic limit and persisting accepted papers. A politeness
// delay separates topics so the upstream APIs are not hammered.
func (s *Scout) RunNightly(ctx context.Context) error {
	return s.runScan(ctx, "nightly", "", topics.All(), func(ctx context.Context, topic string) []*domain.CuratedPaper {
		return s.curator.CuratedFeed(ctx, topic, s.cfg.NightlyLimit)
	})
}

// RunBackfill scans landmark papers for the topics of one hub, or the whole
// taxonomy when hub is empty.
func (s *Scout) RunBackfill(ctx context.Context, hub string) error {
	scanTopics := topics.All()
	if strings.TrimSpace(hub) != "" {
		scanTopics = topics.ForHub(hub)
		if scanTopics == nil {
			return fmt.Errorf("unknown hub %q: %w", hub, domain.ErrInvalidInput)
		}
	}

	return s.runScan(ctx, "backfill", hub, scanTopics, func(ctx context.Context, topic string) []*domain.CuratedPaper {
		return s.curator.HistoricalFeed(ctx, topic, curation.HistoricalYearStart, s.cfg.BackfillLimit)
	})
}

// runScan iterates topics, saving and announcing each accepted paper.
func (s *Scout) runScan(ctx context.Context, mode, hub string, scanTopics []string, feed func(context.Context, string) []*domain.CuratedPaper) error {
	logger := s.logger.With().Str("mode", mode).Logger()
	logger.Info().Int("topics", len(scanTopics)).Msg("starting scan")

	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordScoutRunStarted(mode)
	}

	var scanned, saved, duplicates int
	for i, topic := range scanTopics {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Msg("scan aborted")
			if s.metrics != nil {
				s.metrics.RecordScoutRunFailed(mode, time.Since(start).Seconds())
			}
			return ctx.Err()
		}

		topicLogger := observability.WithTopicContext(logger, topic, mode)
		papers := feed(ctx, topic)
		scanned++

		for _, paper := range papers {
			outcome := s.gw.Save(ctx, paper)
			switch outcome.Status {
			case gateway.StatusSaved:
				saved++
				s.announceCurated(ctx, outcome, paper, mode)
			case gateway.StatusDuplicate:
				duplicates++
			case gateway.StatusFailed:
				topicLogger.Error().Err(outcome.Err).Str("title", paper.Title).Msg("save failed")
			}
		}

		// Politeness delay between topics, skipped after the last one.
		if i < len(scanTopics)-1 && s.cfg.TopicDelay > 0 {
			if err := s.sleep(ctx, s.cfg.TopicDelay); err != nil {
				return err
			}
		}
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordScoutRunCompleted(mode, elapsed.Seconds())
	}
	logger.Info().
		Int("topics_scanned", scanned).
		Int("papers_saved", saved).
		Int("duplicates", duplicates).
		Dur("elapsed", elapsed).
		Msg("scan completed")

	s.announceScanDone(ctx, mode, hub, scanned, saved, duplicates, elapsed)
	return nil
}

// RunRepair re-evaluates rows with missing findings or implications and
// writes back the refreshed enrichment. Rows whose stored text is too short
// to judge are skipped.
func (s *Scout) RunRepair(ctx context.Context) error {
	logger := s.logger.With().Str("mode", "repair").Logger()

	rows, err := s.repo.ListMissingEnrichment(ctx, repairBatchLimit)
	if err != nil {
		return fmt.Errorf("listing rows to repair: %w", err)
	}

	logger.Info().Int("rows", len(rows)).Msg("starting repair pass")
	if s.metrics != nil {
		s.metrics.RecordRepairScanned(len(rows))
	}

	for i, row := range rows {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rowLogger := observability.WithPaperContext(logger, row.ID.String(), row.Title)

		text := strings.TrimSpace(row.Summary)
		if len(text) < minRepairTextLen {
			rowLogger.Debug().Int("text_len", len(text)).Msg("source text too short, skipping")
			continue
		}

		review, err := s.eval.Evaluate(ctx, &domain.Paper{Title: row.Title, Abstract: text})
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordRepairFailed()
			}
			rowLogger.Warn().Err(err).Msg("re-evaluation failed, skipping row")
			continue
		}

		updates := domain.UpdateFields{
			Summary:      &review.LaymanSummary,
			Score:        &review.Score,
			Category:     &review.Category,
			KeyFindings:  review.KeyFindings,
			Implications: review.Implications,
		}
		if err := s.repo.UpdateFields(ctx, row.ID, updates); err != nil {
			if s.metrics != nil {
				s.metrics.RecordRepairFailed()
			}
			rowLogger.Error().Err(err).Msg("failed to update repaired row")
			continue
		}

		if s.metrics != nil {
			s.metrics.RecordRepairFixed()
		}
		rowLogger.Info().Int("score", review.Score).Msg("row repaired")
		s.announceRepaired(ctx, row.ID, row.Title,
			[]string{"summary", "score", "category", "key_findings", "implications"})

		if i < len(rows)-1 && s.cfg.RepairDelay > 0 {
			if err := s.sleep(ctx, s.cfg.RepairDelay); err != nil {
				return err
			}
		}
	}

	return nil
}

// BackfillHighlights fills in title highlights for rows stored before the
// evaluator extracted them. The stored summary stands in for the abstract;
// when even that is missing, the title itself is evaluated.
func (s *Scout) BackfillHighlights(ctx context.Context) error {
	logger := s.logger.With().Str("mode", "highlights").Logger()

	rows, err := s.repo.ListMissingHighlights(ctx, repairBatchLimit)
	if err != nil {
		return fmt.Errorf("listing rows missing highlights: %w", err)
	}

	logger.Info().Int("rows", len(rows)).Msg("starting highlight backfill")
	if s.metrics != nil {
		s.metrics.RecordRepairScanned(len(rows))
	}

	for i, row := range rows {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rowLogger := observability.WithPaperContext(logger, row.ID.String(), row.Title)

		text := strings.TrimSpace(row.Summary)
		if text == "" {
			text = row.Title
		}

		review, err := s.eval.Evaluate(ctx, &domain.Paper{Title: row.Title, Abstract: text})
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordRepairFailed()
			}
			rowLogger.Warn().Err(err).Msg("re-evaluation failed, skipping row")
			continue
		}

		highlights := review.TitleHighlights
		if highlights == nil {
			highlights = []string{}
		}
		if err := s.repo.UpdateFields(ctx, row.ID, domain.UpdateFields{TitleHighlights: highlights}); err != nil {
			if s.metrics != nil {
				s.metrics.RecordRepairFailed()
			}
			rowLogger.Error().Err(err).Msg("failed to store highlights")
			continue
		}

		if s.metrics != nil {
			s.metrics.RecordRepairFixed()
		}
		rowLogger.Info().Strs("highlights", highlights).Msg("highlights backfilled")

		if i < len(rows)-1 && s.cfg.RepairDelay > 0 {
			if err := s.sleep(ctx, s.cfg.RepairDelay); err != nil {
				return err
			}
		}
	}

	return nil
}

// announceCurated publishes a paper.curated event. Failures are logged only.
func (s *Scout) announceCurated(ctx context.Context, outcome gateway.Outcome, paper *domain.CuratedPaper, mode string) {
	event, err := domain.NewEvent(domain.EventTypePaperCurated, outcome.ID.String(), "paper", domain.PaperCuratedPayload{
		PaperID:  outcome.ID,
		Title:    paper.Title,
		Topic:    paper.Topic,
		Category: paper.Category,
		Score:    paper.Score,
		Source:   mode,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build paper.curated event")
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("title", paper.Title).Msg("failed to publish paper.curated event")
	}
}

// announceScanDone publishes a run-completion event. Failures are logged only.
func (s *Scout) announceScanDone(ctx context.Context, mode, hub string, scanned, saved, duplicates int, elapsed time.Duration) {
	var (
		eventType string
		payload   interface{}
	)
	switch mode {
	case "backfill":
		eventType = domain.EventTypeBackfillCompleted
		payload = domain.BackfillCompletedPayload{
			Hub:           hub,
			TopicsScanned: scanned,
			PapersSaved:   saved,
			Duplicates:    duplicates,
			Duration:      elapsed,
		}
	default:
		eventType = domain.EventTypeScoutCompleted
		payload = domain.ScoutCompletedPayload{
			TopicsScanned: scanned,
			PapersSaved:   saved,
			Duplicates:    duplicates,
			Duration:      elapsed,
		}
	}

	event, err := domain.NewEvent(eventType, mode, "scout_run", payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build scan completion event")
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("mode", mode).Msg("failed to publish scan completion event")
	}
}

// announceRepaired publishes a paper.repaired event. Failures are logged only.
func (s *Scout) announceRepaired(ctx context.Context, id uuid.UUID, title string, fields []string) {
	event, err := domain.NewEvent(domain.EventTypePaperRepaired, id.String(), "paper", domain.PaperRepairedPayload{
		PaperID: id,
		Title:   title,
		Fields:  fields,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build paper.repaired event")
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("title", title).Msg("failed to publish paper.repaired event")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
