// Package gateway provides the persistence boundary between the curation
// pipeline and the paper store.
//
// Batch drivers hand every accepted paper to the gateway and carry on; the
// gateway normalizes the record, absorbs duplicate-title conflicts, and
// reports what happened as an Outcome instead of an error. A failed save
// must never abort a scouting run.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skimlabs/curation-service/internal/domain"
	"github.com/skimlabs/curation-service/internal/observability"
	"github.com/skimlabs/curation-service/internal/repository"
)

// OutcomeStatus describes the result of a save attempt.
type OutcomeStatus string

const (
	// StatusSaved indicates the paper was stored as a new row.
	StatusSaved OutcomeStatus = "saved"
	// StatusDuplicate indicates a paper with the same title already exists.
	StatusDuplicate OutcomeStatus = "duplicate"
	// StatusFailed indicates the paper could not be stored.
	StatusFailed OutcomeStatus = "failed"
)

// Outcome reports the result of a save attempt. For StatusSaved and
// StatusDuplicate, ID carries the stored row's identifier.
type Outcome struct {
	Status OutcomeStatus
	ID     uuid.UUID
	Err    error
}

// Saved reports whether the paper was newly stored.
func (o Outcome) Saved() bool {
	return o.Status == StatusSaved
}

// Gateway normalizes and persists curated papers.
type Gateway struct {
	repo    repository.CuratedPaperRepository
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// New creates a persistence gateway. metrics may be nil.
func New(repo repository.CuratedPaperRepository, logger zerolog.Logger, metrics *observability.Metrics) *Gateway {
	return &Gateway{
		repo:    repo,
		logger:  logger.With().Str("component", "gateway").Logger(),
		metrics: metrics,
	}
}

// Save normalizes and stores a curated paper.
//
// The paper's identity is discarded so the store always generates the row
// UUID. A duplicate title resolves to the existing row's id rather than an
// error, so callers can treat "already curated" and "just curated" alike.
func (g *Gateway) Save(ctx context.Context, paper *domain.CuratedPaper) Outcome {
	if paper == nil {
		return Outcome{Status: StatusFailed, Err: domain.ErrInvalidInput}
	}

	record := *paper
	normalize(&record)

	saved, err := g.repo.Insert(ctx, &record)
	if err == nil {
		g.logger.Info().
			Str("title", record.Title).
			Str("topic", record.Topic).
			Int("score", record.Score).
			Msg("paper saved")
		if g.metrics != nil {
			g.metrics.RecordPaperSaved()
		}
		return Outcome{Status: StatusSaved, ID: saved.ID}
	}

	if errors.Is(err, domain.ErrAlreadyExists) {
		return g.resolveDuplicate(ctx, record.Title)
	}

	g.logger.Error().
		Err(err).
		Str("title", record.Title).
		Msg("failed to save paper")
	return Outcome{Status: StatusFailed, Err: fmt.Errorf("saving paper: %w", err)}
}

// resolveDuplicate looks up the existing row so the outcome can carry its id.
func (g *Gateway) resolveDuplicate(ctx context.Context, title string) Outcome {
	if g.metrics != nil {
		g.metrics.RecordPaperDuplicate()
	}

	existing, err := g.repo.GetByTitle(ctx, title)
	if err != nil {
		// The row vanished between conflict and lookup, or the read failed.
		// Still a duplicate from the caller's point of view.
		g.logger.Warn().
			Err(err).
			Str("title", title).
			Msg("duplicate paper but existing row lookup failed")
		return Outcome{Status: StatusDuplicate, Err: err}
	}

	g.logger.Debug().
		Str("title", title).
		Str("id", existing.ID.String()).
		Msg("paper already curated")
	return Outcome{Status: StatusDuplicate, ID: existing.ID}
}

// normalize fills display fallbacks before the row is stored.
func normalize(paper *domain.CuratedPaper) {
	paper.ID = uuid.Nil

	if paper.URL == "" && paper.PaperID != "" {
		paper.URL = "https://www.semanticscholar.org/paper/" + paper.PaperID
	}
	if paper.Journal == "" {
		paper.Journal = "Journal"
	}
	if paper.Date == "" {
		paper.Date = domain.DateRecent
	}
	if paper.Authors == "" {
		paper.Authors = "Unknown"
	}
	if paper.Category == "" {
		paper.Category = domain.CategoryUnclassified
	}
	if paper.KeyFindings == nil {
		paper.KeyFindings = []string{}
	}
	if paper.Implications == nil {
		paper.Implications = []string{}
	}
	if paper.TitleHighlights == nil {
		paper.TitleHighlights = []string{}
	}
}
