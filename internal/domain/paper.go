// Package domain provides the core models for the Skim paper curation service.
package domain

import "strings"

// SourceType identifies the upstream literature API that produced a record.
type SourceType string

const (
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypeArXiv           SourceType = "arxiv"
)

// DateRecent is the sentinel publication date used when a source omits one.
const DateRecent = "Recent"

// Author is a single paper author as reported by an upstream source.
type Author struct {
	Name string `json:"name"`
}

// Paper is a raw bibliographic record as returned by an upstream source.
// It is constructed per API response, folded into a CuratedPaper on
// acceptance, and discarded otherwise.
type Paper struct {
	// Title is the paper title (always present on well-formed records).
	Title string

	// Abstract is the paper abstract. Records without one are filtered out
	// before evaluation and never curated.
	Abstract string

	// Authors is the ordered author list.
	Authors []Author

	// PublicationDate is the loosely formatted date string from the source,
	// empty when the source omits it.
	PublicationDate string

	// Venue is the journal or conference name, if known.
	Venue string

	// PaperID is the source-native identifier.
	PaperID string

	// DOI is the DOI identifier, if known.
	DOI string

	// PageURL is the source's own landing page for the paper.
	PageURL string

	// OpenAccessPDF is a direct open-access PDF link, if available.
	OpenAccessPDF string

	// CitationCount is the citation count reported by the source.
	// Only populated in historical mode.
	CitationCount int
}

// HasAbstract reports whether the record carries a usable abstract.
func (p *Paper) HasAbstract() bool {
	return strings.TrimSpace(p.Abstract) != ""
}

// AuthorString joins up to max author names into a display string.
// Returns "Unknown" when the record has no authors.
func (p *Paper) AuthorString(max int) string {
	if len(p.Authors) == 0 {
		return "Unknown"
	}
	names := make([]string, 0, max)
	for i, a := range p.Authors {
		if i >= max {
			break
		}
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// DateOrRecent returns the publication date string, or the "Recent" sentinel
// when the source did not provide one.
func (p *Paper) DateOrRecent() string {
	if strings.TrimSpace(p.PublicationDate) == "" {
		return DateRecent
	}
	return p.PublicationDate
}
