package server

import (
	"time"

	"github.com/skimlabs/curation-service/internal/domain"
)

// Response types for JSON serialization.

type paperResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Date            string    `json:"date"`
	Authors         string    `json:"authors"`
	Summary         string    `json:"summary"`
	URL             string    `json:"url"`
	Journal         string    `json:"journal"`
	Score           int       `json:"score"`
	Category        string    `json:"category"`
	Topic           string    `json:"topic"`
	PaperID         string    `json:"paper_id,omitempty"`
	CitationCount   int       `json:"citation_count"`
	KeyFindings     []string  `json:"key_findings"`
	Implications    []string  `json:"implications"`
	TitleHighlights []string  `json:"title_highlights"`
	DateAdded       time.Time `json:"date_added,omitempty"`
}

type listPapersResponse struct {
	Papers     []paperResponse `json:"papers"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

type searchResponse struct {
	Query      string          `json:"query"`
	Papers     []paperResponse `json:"papers"`
	TotalCount int             `json:"total_count"`
	Message    string          `json:"message,omitempty"`
}

type hubResponse struct {
	Name   string   `json:"name"`
	Topics []string `json:"topics"`
}

type topicsResponse struct {
	Hubs []hubResponse `json:"hubs"`
}

func toPaperResponse(p *domain.CuratedPaper) paperResponse {
	return paperResponse{
		ID:              p.ID.String(),
		Title:           p.Title,
		Date:            p.Date,
		Authors:         p.Authors,
		Summary:         p.Summary,
		URL:             p.URL,
		Journal:         p.Journal,
		Score:           p.Score,
		Category:        string(p.Category),
		Topic:           p.Topic,
		PaperID:         p.PaperID,
		CitationCount:   p.CitationCount,
		KeyFindings:     emptyIfNil(p.KeyFindings),
		Implications:    emptyIfNil(p.Implications),
		TitleHighlights: emptyIfNil(p.TitleHighlights),
		DateAdded:       p.DateAdded,
	}
}

func toPaperResponses(papers []*domain.CuratedPaper) []paperResponse {
	out := make([]paperResponse, len(papers))
	for i, p := range papers {
		out[i] = toPaperResponse(p)
	}
	return out
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
