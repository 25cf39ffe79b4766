package domain

import (
	"time"

	"github.com/google/uuid"
)

// CuratedPaper is a paper that passed editorial evaluation and is stored
// in the curated feed. It merges the raw bibliographic record with the
// evaluator's verdict and the topic it was scouted under.
type CuratedPaper struct {
	ID uuid.UUID

	Title   string
	Date    string
	Authors string
	Summary string
	URL     string
	Journal string

	Score    int
	Category Category
	Topic    string

	PaperID       string
	CitationCount int

	KeyFindings     []string
	Implications    []string
	TitleHighlights []string

	DateAdded time.Time
}

// NewCuratedPaper folds a raw record, its review and the scouting topic
// into a row ready for persistence. maxAuthors bounds the joined author
// display string. URL resolution and field normalization happen at the
// gateway, not here.
func NewCuratedPaper(p *Paper, r *Review, topic, url string, maxAuthors int) *CuratedPaper {
	return &CuratedPaper{
		Title:           p.Title,
		Date:            p.DateOrRecent(),
		Authors:         p.AuthorString(maxAuthors),
		Summary:         r.LaymanSummary,
		URL:             url,
		Journal:         p.Venue,
		Score:           r.Score,
		Category:        r.Category,
		Topic:           topic,
		PaperID:         p.PaperID,
		CitationCount:   p.CitationCount,
		KeyFindings:     r.KeyFindings,
		Implications:    r.Implications,
		TitleHighlights: r.TitleHighlights,
	}
}

// UpdateFields is a partial update for a curated paper, applied by the
// repair pass. Nil pointers leave the stored value untouched.
type UpdateFields struct {
	Summary         *string
	Score           *int
	Category        *Category
	KeyFindings     []string
	Implications    []string
	TitleHighlights []string
	URL             *string
	Date            *string
}

// IsEmpty reports whether the update would touch no columns.
func (u *UpdateFields) IsEmpty() bool {
	return u.Summary == nil && u.Score == nil && u.Category == nil &&
		u.KeyFindings == nil && u.Implications == nil && u.TitleHighlights == nil &&
		u.URL == nil && u.Date == nil
}
