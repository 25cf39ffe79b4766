// Package curation implements the editorial pipeline that turns raw search
// results into scored, curated papers.
//
// The pipeline over-fetches candidates from a source, skips records without
// an abstract, evaluates the rest sequentially in fetch order, and keeps
// papers that clear the mode's score threshold until the requested number
// of accepted papers is reached. Upstream failures degrade to an empty
// result; a feed render or scouting run never fails because a source or
// the evaluator is down.
package curation

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/skimlabs/curation-service/internal/domain"
	"github.com/skimlabs/curation-service/internal/evaluator"
	"github.com/skimlabs/curation-service/internal/observability"
	"github.com/skimlabs/curation-service/internal/sources"
	"github.com/skimlabs/curation-service/internal/topics"
)

// Score thresholds per curation mode. Interactive search applies none.
const (
	CurrentFeedThreshold = 7
	HistoricalThreshold  = 6
)

// Candidate over-fetch factor: for a feed of n papers, 2n records are
// requested so rejections and missing abstracts do not starve the feed.
const overFetchFactor = 2

// Joined author display string bounds per source.
const (
	scholarMaxAuthors = 2
	arxivMaxAuthors   = 3
)

// Default feed sizes when the caller passes no limit.
const (
	defaultFeedLimit   = 3
	defaultSearchLimit = 6
)

// HistoricalYearStart is the default lower bound for historical backfill
// searches.
const HistoricalYearStart = 2015

// Service runs the curation pipeline against the configured sources.
type Service struct {
	scholar sources.Source
	arxiv   sources.Source
	eval    evaluator.Evaluator
	logger  zerolog.Logger
	metrics *observability.Metrics

	// now and rng are swappable for tests.
	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a curation service. metrics may be nil.
func New(scholar, arxiv sources.Source, eval evaluator.Evaluator, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		scholar: scholar,
		arxiv:   arxiv,
		eval:    eval,
		logger:  logger.With().Str("component", "curation").Logger(),
		metrics: metrics,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CuratedFeed scouts recent papers for a topic and returns those that clear
// the current-feed threshold, at most limit papers. An empty topic picks a
// random one from the taxonomy. The window covers the previous and current
// year so December feeds do not go stale.
func (s *Service) CuratedFeed(ctx context.Context, topic string, limit int) []*domain.CuratedPaper {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if strings.TrimSpace(topic) == "" {
		topic = s.randomTopic()
		s.logger.Info().Str("topic", topic).Msg("no topic given, auto-scouting")
	}

	year := s.now().Year()
	result, err := s.search(ctx, s.scholar, sources.SearchParams{
		Query:      topic,
		YearFrom:   year - 1,
		YearTo:     year,
		MaxResults: limit * overFetchFactor,
		Sort:       sources.SortByRecency,
	})
	if err != nil {
		return []*domain.CuratedPaper{}
	}

	return s.curate(ctx, result.Papers, curateOptions{
		topic:      topic,
		mode:       "current",
		threshold:  CurrentFeedThreshold,
		limit:      limit,
		maxAuthors: scholarMaxAuthors,
	})
}

// HistoricalFeed scouts landmark papers for a topic back to yearStart,
// ordered by citation count, and returns those that clear the historical
// threshold. yearStart <= 0 defaults to HistoricalYearStart.
func (s *Service) HistoricalFeed(ctx context.Context, topic string, yearStart, limit int) []*domain.CuratedPaper {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if yearStart <= 0 {
		yearStart = HistoricalYearStart
	}

	result, err := s.search(ctx, s.scholar, sources.SearchParams{
		Query:      topic,
		YearFrom:   yearStart,
		YearTo:     s.now().Year(),
		MaxResults: limit * overFetchFactor,
		Sort:       sources.SortByCitations,
	})
	if err != nil {
		return []*domain.CuratedPaper{}
	}

	return s.curate(ctx, result.Papers, curateOptions{
		topic:      topic,
		mode:       "historical",
		threshold:  HistoricalThreshold,
		limit:      limit,
		maxAuthors: scholarMaxAuthors,
	})
}

// SearchArxiv runs an interactive arXiv search. Every paper with an
// abstract is evaluated and returned regardless of score; the reader asked
// for these, so the editor annotates instead of filtering.
func (s *Service) SearchArxiv(ctx context.Context, query string, limit int) []*domain.CuratedPaper {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	// No threshold means no rejections to compensate for, so unlike the
	// feeds this fetches exactly the requested count.
	result, err := s.search(ctx, s.arxiv, sources.SearchParams{
		Query:      query,
		MaxResults: limit,
		Sort:       sources.SortByRecency,
	})
	if err != nil {
		return []*domain.CuratedPaper{}
	}

	return s.curate(ctx, result.Papers, curateOptions{
		topic:      query,
		mode:       "search",
		threshold:  0,
		limit:      limit,
		maxAuthors: arxivMaxAuthors,
	})
}

// search queries one source, recording metrics and degrading errors to the
// caller as-is for the empty-result fallback.
func (s *Service) search(ctx context.Context, src sources.Source, params sources.SearchParams) (*sources.SearchResult, error) {
	logger := observability.WithSearchContext(s.logger, params.Query, string(src.SourceType()))

	if !src.IsEnabled() {
		logger.Warn().Msg("source disabled, skipping search")
		return &sources.SearchResult{Source: src.SourceType()}, nil
	}

	start := s.now()
	if s.metrics != nil {
		s.metrics.RecordSearchStarted(string(src.SourceType()))
	}

	result, err := src.Search(ctx, params)
	elapsed := s.now().Sub(start).Seconds()
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSearchFailed(string(src.SourceType()), elapsed)
		}
		logger.Error().Err(err).Msg("source search failed")
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordSearchCompleted(string(src.SourceType()), len(result.Papers), elapsed)
	}
	logger.Debug().Int("papers", len(result.Papers)).Msg("source search completed")
	return result, nil
}

// curateOptions carries the per-mode policy for a curation pass.
type curateOptions struct {
	topic      string
	mode       string
	threshold  int
	limit      int
	maxAuthors int
}

// curate evaluates candidates in fetch order and keeps those that clear the
// threshold, stopping once limit papers are accepted. Evaluation failures
// skip the candidate; context cancellation aborts the pass with whatever
// was accepted so far.
func (s *Service) curate(ctx context.Context, papers []*domain.Paper, opts curateOptions) []*domain.CuratedPaper {
	logger := observability.WithTopicContext(s.logger, opts.topic, opts.mode)

	accepted := make([]*domain.CuratedPaper, 0, opts.limit)
	for _, paper := range papers {
		if len(accepted) >= opts.limit {
			break
		}
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Msg("curation pass aborted")
			break
		}

		if !paper.HasAbstract() {
			if s.metrics != nil {
				s.metrics.RecordPaperMissingAbstract()
			}
			logger.Debug().Str("title", paper.Title).Msg("skipping paper without abstract")
			continue
		}

		review, err := s.eval.Evaluate(ctx, paper)
		if err != nil {
			logger.Warn().Err(err).Str("title", paper.Title).Msg("evaluation failed, skipping paper")
			continue
		}

		if s.metrics != nil {
			s.metrics.RecordEvaluation(review.Score)
		}

		if opts.threshold > 0 && review.Score < opts.threshold {
			if s.metrics != nil {
				s.metrics.RecordPaperRejected(opts.mode)
			}
			logger.Debug().
				Str("title", paper.Title).
				Int("score", review.Score).
				Msg("paper below threshold, rejected")
			continue
		}

		if s.metrics != nil {
			s.metrics.RecordPaperAccepted(opts.mode)
		}
		logger.Info().
			Str("title", paper.Title).
			Int("score", review.Score).
			Msg("paper accepted")

		accepted = append(accepted, domain.NewCuratedPaper(paper, review, opts.topic, ResolveBestURL(paper), opts.maxAuthors))
	}

	return accepted
}

// randomTopic picks a uniformly random topic from the taxonomy.
func (s *Service) randomTopic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return topics.Random(s.rng)
}
