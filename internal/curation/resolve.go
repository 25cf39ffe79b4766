package curation

import "github.com/skimlabs/curation-service/internal/domain"

// ResolveBestURL picks the most useful link for a paper: the open-access
// PDF when one exists, then a DOI resolver link, then the source's landing
// page. Returns "" when the record carries none of these; the gateway
// falls back to the Semantic Scholar landing page at save time.
func ResolveBestURL(p *domain.Paper) string {
	if p.OpenAccessPDF != "" {
		return p.OpenAccessPDF
	}
	if p.DOI != "" {
		return "https://doi.org/" + p.DOI
	}
	if p.PageURL != "" {
		return p.PageURL
	}
	return ""
}
