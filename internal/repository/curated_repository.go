package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/skimlabs/curation-service/internal/domain"
)

// CuratedPaperRepository handles persistence of curated papers.
//
// The papers table carries a unique constraint on title, so duplicate
// detection happens at insert time rather than through a lookup-then-insert
// race.
type CuratedPaperRepository interface {
	// Insert stores a new curated paper.
	// Returns domain.ErrAlreadyExists if a paper with the same title is
	// already stored.
	Insert(ctx context.Context, paper *domain.CuratedPaper) (*domain.CuratedPaper, error)

	// GetByID retrieves a paper by its internal UUID.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CuratedPaper, error)

	// GetByTitle retrieves a paper by its exact title.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByTitle(ctx context.Context, title string) (*domain.CuratedPaper, error)

	// UpdateFields applies a partial update to a stored paper. Only the
	// non-nil fields of updates are written.
	// Returns domain.ErrInvalidInput if updates is empty and
	// domain.ErrNotFound if the paper does not exist.
	UpdateFields(ctx context.Context, id uuid.UUID, updates domain.UpdateFields) error

	// ListByTopic retrieves papers for a topic, newest first.
	ListByTopic(ctx context.Context, topic string, limit, offset int) ([]*domain.CuratedPaper, error)

	// ListTopRated retrieves the highest scored papers across all topics.
	ListTopRated(ctx context.Context, limit int) ([]*domain.CuratedPaper, error)

	// ListRecent retrieves the most recently added papers across all topics.
	ListRecent(ctx context.Context, limit int) ([]*domain.CuratedPaper, error)

	// ListMissingEnrichment retrieves papers with empty key findings or
	// implications, oldest first. These are candidates for re-evaluation.
	ListMissingEnrichment(ctx context.Context, limit int) ([]*domain.CuratedPaper, error)

	// ListMissingHighlights retrieves papers that have no title highlights.
	ListMissingHighlights(ctx context.Context, limit int) ([]*domain.CuratedPaper, error)

	// CountByTopic returns the number of stored papers for a topic.
	CountByTopic(ctx context.Context, topic string) (int64, error)

	// Delete removes a paper by ID.
	// Returns domain.ErrNotFound if the paper does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
