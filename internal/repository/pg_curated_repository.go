package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/skimlabs/curation-service/internal/domain"
)

// PostgreSQL error codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Compile-time interface verification.
var _ CuratedPaperRepository = (*PgCuratedPaperRepository)(nil)

// PgCuratedPaperRepository is a PostgreSQL implementation of CuratedPaperRepository.
type PgCuratedPaperRepository struct {
	db DBTX
}

// NewPgCuratedPaperRepository creates a new PostgreSQL curated paper repository.
func NewPgCuratedPaperRepository(db DBTX) *PgCuratedPaperRepository {
	return &PgCuratedPaperRepository{db: db}
}

const curatedPaperColumns = `id, title, date, authors, summary, url, journal,
	score, category, topic, paper_id, citation_count,
	key_findings, implications, title_highlights, date_added`

// Insert stores a new curated paper.
func (r *PgCuratedPaperRepository) Insert(ctx context.Context, paper *domain.CuratedPaper) (*domain.CuratedPaper, error) {
	if paper == nil {
		return nil, domain.NewValidationError("paper", "paper cannot be nil")
	}
	if strings.TrimSpace(paper.Title) == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	findingsJSON, implicationsJSON, highlightsJSON, err := marshalEnrichment(paper)
	if err != nil {
		return nil, err
	}

	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}
	if paper.DateAdded.IsZero() {
		paper.DateAdded = time.Now().UTC()
	}

	query := `
		INSERT INTO curated_papers (
			id, title, date, authors, summary, url, journal,
			score, category, topic, paper_id, citation_count,
			key_findings, implications, title_highlights, date_added
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		RETURNING id, date_added`

	err = r.db.QueryRow(ctx, query,
		paper.ID,
		paper.Title,
		paper.Date,
		paper.Authors,
		paper.Summary,
		paper.URL,
		paper.Journal,
		paper.Score,
		string(paper.Category),
		paper.Topic,
		paper.PaperID,
		paper.CitationCount,
		findingsJSON,
		implicationsJSON,
		highlightsJSON,
		paper.DateAdded,
	).Scan(&paper.ID, &paper.DateAdded)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, domain.NewAlreadyExistsError("paper", paper.Title)
		}
		return nil, fmt.Errorf("failed to insert paper: %w", err)
	}

	return paper, nil
}

// GetByID retrieves a paper by its internal UUID.
func (r *PgCuratedPaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CuratedPaper, error) {
	if id == uuid.Nil {
		return nil, domain.NewValidationError("id", "id is required")
	}

	query := `SELECT ` + curatedPaperColumns + ` FROM curated_papers WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	paper, err := scanCuratedPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", id.String())
		}
		return nil, fmt.Errorf("failed to get paper by id: %w", err)
	}

	return paper, nil
}

// GetByTitle retrieves a paper by its exact title.
func (r *PgCuratedPaperRepository) GetByTitle(ctx context.Context, title string) (*domain.CuratedPaper, error) {
	if strings.TrimSpace(title) == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	query := `SELECT ` + curatedPaperColumns + ` FROM curated_papers WHERE title = $1`

	row := r.db.QueryRow(ctx, query, title)
	paper, err := scanCuratedPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", title)
		}
		return nil, fmt.Errorf("failed to get paper by title: %w", err)
	}

	return paper, nil
}

// UpdateFields applies a partial update to a stored paper.
func (r *PgCuratedPaperRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates domain.UpdateFields) error {
	if id == uuid.Nil {
		return domain.NewValidationError("id", "id is required")
	}
	if updates.IsEmpty() {
		return domain.NewValidationError("updates", "no fields to update")
	}

	setClauses := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if updates.Summary != nil {
		setClauses = append(setClauses, "summary = "+arg(*updates.Summary))
	}
	if updates.Score != nil {
		setClauses = append(setClauses, "score = "+arg(*updates.Score))
	}
	if updates.Category != nil {
		setClauses = append(setClauses, "category = "+arg(string(*updates.Category)))
	}
	if updates.URL != nil {
		setClauses = append(setClauses, "url = "+arg(*updates.URL))
	}
	if updates.Date != nil {
		setClauses = append(setClauses, "date = "+arg(*updates.Date))
	}
	if updates.KeyFindings != nil {
		data, err := json.Marshal(updates.KeyFindings)
		if err != nil {
			return fmt.Errorf("failed to marshal key findings: %w", err)
		}
		setClauses = append(setClauses, "key_findings = "+arg(data))
	}
	if updates.Implications != nil {
		data, err := json.Marshal(updates.Implications)
		if err != nil {
			return fmt.Errorf("failed to marshal implications: %w", err)
		}
		setClauses = append(setClauses, "implications = "+arg(data))
	}
	if updates.TitleHighlights != nil {
		data, err := json.Marshal(updates.TitleHighlights)
		if err != nil {
			return fmt.Errorf("failed to marshal title highlights: %w", err)
		}
		setClauses = append(setClauses, "title_highlights = "+arg(data))
	}

	query := fmt.Sprintf("UPDATE curated_papers SET %s WHERE id = %s",
		strings.Join(setClauses, ", "), arg(id))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update paper: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", id.String())
	}

	return nil
}

// ListByTopic retrieves papers for a topic, newest first.
func (r *PgCuratedPaperRepository) ListByTopic(ctx context.Context, topic string, limit, offset int) ([]*domain.CuratedPaper, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, domain.NewValidationError("topic", "topic is required")
	}
	applyPaginationDefaults(&limit, &offset)

	query := `SELECT ` + curatedPaperColumns + `
		FROM curated_papers
		WHERE topic = $1
		ORDER BY date_added DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, topic, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list papers by topic: %w", err)
	}
	defer rows.Close()

	return collectCuratedPapers(rows)
}

// ListTopRated retrieves the highest scored papers across all topics.
// Only papers at or above the current-feed score threshold qualify.
func (r *PgCuratedPaperRepository) ListTopRated(ctx context.Context, limit int) ([]*domain.CuratedPaper, error) {
	offset := 0
	applyPaginationDefaults(&limit, &offset)

	query := `SELECT ` + curatedPaperColumns + `
		FROM curated_papers
		WHERE score >= 7
		ORDER BY score DESC, date_added DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top rated papers: %w", err)
	}
	defer rows.Close()

	return collectCuratedPapers(rows)
}

// ListRecent retrieves the most recently added papers across all topics.
func (r *PgCuratedPaperRepository) ListRecent(ctx context.Context, limit int) ([]*domain.CuratedPaper, error) {
	offset := 0
	applyPaginationDefaults(&limit, &offset)

	query := `SELECT ` + curatedPaperColumns + `
		FROM curated_papers
		ORDER BY date_added DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent papers: %w", err)
	}
	defer rows.Close()

	return collectCuratedPapers(rows)
}

// ListMissingEnrichment retrieves papers with empty key findings or
// implications, oldest first.
func (r *PgCuratedPaperRepository) ListMissingEnrichment(ctx context.Context, limit int) ([]*domain.CuratedPaper, error) {
	offset := 0
	applyPaginationDefaults(&limit, &offset)

	query := `SELECT ` + curatedPaperColumns + `
		FROM curated_papers
		WHERE key_findings IS NULL OR key_findings = '[]'::jsonb
		   OR implications IS NULL OR implications = '[]'::jsonb
		ORDER BY date_added ASC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list papers missing enrichment: %w", err)
	}
	defer rows.Close()

	return collectCuratedPapers(rows)
}

// ListMissingHighlights retrieves papers that have no title highlights.
func (r *PgCuratedPaperRepository) ListMissingHighlights(ctx context.Context, limit int) ([]*domain.CuratedPaper, error) {
	offset := 0
	applyPaginationDefaults(&limit, &offset)

	query := `SELECT ` + curatedPaperColumns + `
		FROM curated_papers
		WHERE title_highlights IS NULL OR title_highlights = '[]'::jsonb
		ORDER BY date_added ASC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list papers missing highlights: %w", err)
	}
	defer rows.Close()

	return collectCuratedPapers(rows)
}

// CountByTopic returns the number of stored papers for a topic.
func (r *PgCuratedPaperRepository) CountByTopic(ctx context.Context, topic string) (int64, error) {
	if strings.TrimSpace(topic) == "" {
		return 0, domain.NewValidationError("topic", "topic is required")
	}

	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM curated_papers WHERE topic = $1`, topic).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count papers by topic: %w", err)
	}

	return count, nil
}

// Delete removes a paper by ID.
func (r *PgCuratedPaperRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.NewValidationError("id", "id is required")
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM curated_papers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete paper: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", id.String())
	}

	return nil
}

// marshalEnrichment serializes the list fields to JSON, defaulting nil
// slices to empty arrays so the jsonb columns never hold SQL NULL.
func marshalEnrichment(paper *domain.CuratedPaper) (findings, implications, highlights []byte, err error) {
	findings, err = marshalStringList(paper.KeyFindings)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal key findings: %w", err)
	}
	implications, err = marshalStringList(paper.Implications)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal implications: %w", err)
	}
	highlights, err = marshalStringList(paper.TitleHighlights)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal title highlights: %w", err)
	}
	return findings, implications, highlights, nil
}

func marshalStringList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scanning code.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanCuratedPaper scans a single row into a CuratedPaper.
func scanCuratedPaper(row rowScanner) (*domain.CuratedPaper, error) {
	var paper domain.CuratedPaper
	var category string
	var findingsJSON, implicationsJSON, highlightsJSON []byte

	err := row.Scan(
		&paper.ID,
		&paper.Title,
		&paper.Date,
		&paper.Authors,
		&paper.Summary,
		&paper.URL,
		&paper.Journal,
		&paper.Score,
		&category,
		&paper.Topic,
		&paper.PaperID,
		&paper.CitationCount,
		&findingsJSON,
		&implicationsJSON,
		&highlightsJSON,
		&paper.DateAdded,
	)
	if err != nil {
		return nil, err
	}

	paper.Category = domain.Category(category)

	if paper.KeyFindings, err = unmarshalStringList(findingsJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key findings: %w", err)
	}
	if paper.Implications, err = unmarshalStringList(implicationsJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal implications: %w", err)
	}
	if paper.TitleHighlights, err = unmarshalStringList(highlightsJSON); err != nil {
		return nil, fmt.Errorf("failed to unmarshal title highlights: %w", err)
	}

	return &paper, nil
}

func unmarshalStringList(data []byte) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

// collectCuratedPapers drains rows into a slice of papers.
func collectCuratedPapers(rows pgx.Rows) ([]*domain.CuratedPaper, error) {
	papers := make([]*domain.CuratedPaper, 0)
	for rows.Next() {
		paper, err := scanCuratedPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read paper rows: %w", err)
	}

	return papers, nil
}
