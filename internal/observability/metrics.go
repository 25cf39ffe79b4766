package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the curation service.
// Metrics are organized by subsystem: scout runs, searches, papers, sources,
// evaluator operations, and repair passes. All counters and histograms are
// registered via promauto for automatic registration with the default
// Prometheus registry.
type Metrics struct {
	// ScoutRunsStarted counts scout runs initiated, labeled by mode
	// (nightly, backfill, search, repair).
	ScoutRunsStarted *prometheus.CounterVec

	// ScoutRunsCompleted counts scout runs that finished, labeled by mode.
	ScoutRunsCompleted *prometheus.CounterVec

	// ScoutRunsFailed counts scout runs that ended in failure, labeled by mode.
	ScoutRunsFailed *prometheus.CounterVec

	// ScoutRunDuration observes the end-to-end duration of scout runs in seconds.
	ScoutRunDuration *prometheus.HistogramVec

	// SearchesStarted counts searches initiated, labeled by paper source.
	SearchesStarted *prometheus.CounterVec

	// SearchesCompleted counts successful searches, labeled by paper source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed searches, labeled by paper source.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes search duration in seconds, labeled by paper source.
	SearchDuration *prometheus.HistogramVec

	// PapersPerSearch observes the distribution of papers returned per search, labeled by source.
	PapersPerSearch *prometheus.HistogramVec

	// PapersEvaluated counts papers submitted for editorial evaluation.
	PapersEvaluated prometheus.Counter

	// PapersAccepted counts papers that cleared the score threshold, labeled by mode.
	PapersAccepted *prometheus.CounterVec

	// PapersRejected counts papers rejected below the score threshold, labeled by mode.
	PapersRejected *prometheus.CounterVec

	// PapersSaved counts papers persisted to the curated feed.
	PapersSaved prometheus.Counter

	// PapersDuplicate counts papers skipped as duplicates of existing rows.
	PapersDuplicate prometheus.Counter

	// PapersMissingAbstract counts papers filtered out for lacking an abstract.
	PapersMissingAbstract prometheus.Counter

	// ScoreDistribution observes evaluator scores across all evaluations.
	ScoreDistribution prometheus.Histogram

	// SourceRequestsTotal counts HTTP requests to paper source APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to paper source APIs, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to paper source APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from paper source APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// SourceRetries counts retry attempts against paper source APIs, labeled by source.
	SourceRetries *prometheus.CounterVec

	// EvaluatorRequestsTotal counts evaluator API requests, labeled by model.
	EvaluatorRequestsTotal *prometheus.CounterVec

	// EvaluatorRequestsFailed counts failed evaluator API requests, labeled by model and error type.
	EvaluatorRequestsFailed *prometheus.CounterVec

	// EvaluatorRequestDuration observes evaluator API request duration in seconds, labeled by model.
	EvaluatorRequestDuration *prometheus.HistogramVec

	// RepairRowsScanned counts rows examined by the repair pass.
	RepairRowsScanned prometheus.Counter

	// RepairRowsFixed counts rows updated by the repair pass.
	RepairRowsFixed prometheus.Counter

	// RepairRowsFailed counts rows the repair pass could not fix.
	RepairRowsFailed prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Scout runs
		ScoutRunsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scout_runs_started_total",
			Help:      "Total number of scout runs started by mode",
		}, []string{"mode"}),
		ScoutRunsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scout_runs_completed_total",
			Help:      "Total number of scout runs completed by mode",
		}, []string{"mode"}),
		ScoutRunsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scout_runs_failed_total",
			Help:      "Total number of scout runs that failed by mode",
		}, []string{"mode"}),
		ScoutRunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scout_run_duration_seconds",
			Help:      "Duration of scout runs in seconds by mode",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}, []string{"mode"}),

		// Searches
		SearchesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of paper searches started by source",
		}, []string{"source"}),
		SearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of paper searches completed by source",
		}, []string{"source"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of paper searches that failed by source",
		}, []string{"source"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of paper searches in seconds by source",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"source"}),
		PapersPerSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_search",
			Help:      "Number of papers returned per search by source",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}, []string{"source"}),

		// Papers
		PapersEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_evaluated_total",
			Help:      "Total number of papers submitted for evaluation",
		}),
		PapersAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_accepted_total",
			Help:      "Total number of papers accepted by mode",
		}, []string{"mode"}),
		PapersRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_rejected_total",
			Help:      "Total number of papers rejected below threshold by mode",
		}, []string{"mode"}),
		PapersSaved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_saved_total",
			Help:      "Total number of papers saved to the curated feed",
		}),
		PapersDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_duplicate_total",
			Help:      "Total number of duplicate papers skipped",
		}),
		PapersMissingAbstract: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_missing_abstract_total",
			Help:      "Total number of papers filtered out for missing abstracts",
		}),
		ScoreDistribution: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluator_score",
			Help:      "Distribution of evaluator scores",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to paper sources",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to paper sources",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to paper sources in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "endpoint"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from paper sources",
		}, []string{"source"}),
		SourceRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_retries_total",
			Help:      "Total number of retry attempts against paper sources",
		}, []string{"source"}),

		// Evaluator
		EvaluatorRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluator_requests_total",
			Help:      "Total number of evaluator requests by model",
		}, []string{"model"}),
		EvaluatorRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluator_requests_failed_total",
			Help:      "Total number of failed evaluator requests by model",
		}, []string{"model", "error_type"}),
		EvaluatorRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluator_request_duration_seconds",
			Help:      "Duration of evaluator requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"model"}),

		// Repair
		RepairRowsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repair_rows_scanned_total",
			Help:      "Total number of rows scanned by the repair pass",
		}),
		RepairRowsFixed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repair_rows_fixed_total",
			Help:      "Total number of rows fixed by the repair pass",
		}),
		RepairRowsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repair_rows_failed_total",
			Help:      "Total number of rows the repair pass failed to fix",
		}),
	}
}

// RecordScoutRunStarted records that a scout run has started.
func (m *Metrics) RecordScoutRunStarted(mode string) {
	m.ScoutRunsStarted.WithLabelValues(mode).Inc()
}

// RecordScoutRunCompleted records that a scout run has completed.
func (m *Metrics) RecordScoutRunCompleted(mode string, durationSeconds float64) {
	m.ScoutRunsCompleted.WithLabelValues(mode).Inc()
	m.ScoutRunDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordScoutRunFailed records that a scout run has failed.
func (m *Metrics) RecordScoutRunFailed(mode string, durationSeconds float64) {
	m.ScoutRunsFailed.WithLabelValues(mode).Inc()
	m.ScoutRunDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordSearchStarted records that a search has started.
func (m *Metrics) RecordSearchStarted(source string) {
	m.SearchesStarted.WithLabelValues(source).Inc()
}

// RecordSearchCompleted records that a search has completed.
func (m *Metrics) RecordSearchCompleted(source string, paperCount int, durationSeconds float64) {
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.PapersPerSearch.WithLabelValues(source).Observe(float64(paperCount))
}

// RecordSearchFailed records that a search has failed.
func (m *Metrics) RecordSearchFailed(source string, durationSeconds float64) {
	m.SearchesFailed.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordEvaluation records an evaluator verdict.
func (m *Metrics) RecordEvaluation(score int) {
	m.PapersEvaluated.Inc()
	m.ScoreDistribution.Observe(float64(score))
}

// RecordPaperAccepted records a paper that cleared the threshold.
func (m *Metrics) RecordPaperAccepted(mode string) {
	m.PapersAccepted.WithLabelValues(mode).Inc()
}

// RecordPaperRejected records a paper rejected below the threshold.
func (m *Metrics) RecordPaperRejected(mode string) {
	m.PapersRejected.WithLabelValues(mode).Inc()
}

// RecordPaperSaved records a paper persisted to the feed.
func (m *Metrics) RecordPaperSaved() {
	m.PapersSaved.Inc()
}

// RecordPaperDuplicate records a duplicate paper.
func (m *Metrics) RecordPaperDuplicate() {
	m.PapersDuplicate.Inc()
}

// RecordPaperMissingAbstract records a paper filtered out for missing its abstract.
func (m *Metrics) RecordPaperMissingAbstract() {
	m.PapersMissingAbstract.Inc()
}

// RecordSourceRequest records a request to a paper source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to a paper source.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordSourceRetry records a retry attempt against a source.
func (m *Metrics) RecordSourceRetry(source string) {
	m.SourceRetries.WithLabelValues(source).Inc()
}

// RecordEvaluatorRequest records an evaluator request.
func (m *Metrics) RecordEvaluatorRequest(model string, durationSeconds float64) {
	m.EvaluatorRequestsTotal.WithLabelValues(model).Inc()
	m.EvaluatorRequestDuration.WithLabelValues(model).Observe(durationSeconds)
}

// RecordEvaluatorRequestFailed records a failed evaluator request.
func (m *Metrics) RecordEvaluatorRequestFailed(model, errorType string) {
	m.EvaluatorRequestsFailed.WithLabelValues(model, errorType).Inc()
}

// RecordRepairScanned records rows examined by the repair pass.
func (m *Metrics) RecordRepairScanned(count int) {
	m.RepairRowsScanned.Add(float64(count))
}

// RecordRepairFixed records a row fixed by the repair pass.
func (m *Metrics) RecordRepairFixed() {
	m.RepairRowsFixed.Inc()
}

// RecordRepairFailed records a row the repair pass could not fix.
func (m *Metrics) RecordRepairFailed() {
	m.RepairRowsFailed.Inc()
}
