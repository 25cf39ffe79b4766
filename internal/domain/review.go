package domain

// Category is an editorial subject label assigned by the evaluator.
// The taxonomy is open: the evaluator may emit labels outside the
// well-known set and they are stored as-is.
type Category string

const (
	CategoryAI           Category = "AI & Computing"
	CategoryBiotech      Category = "Biotech & Health"
	CategoryEnergy       Category = "Energy & Climate"
	CategoryMaterials    Category = "Materials & Manufacturing"
	CategoryRobotics     Category = "Robotics & Autonomy"
	CategorySpace        Category = "Space & Physics"
	CategoryUnclassified Category = "Unclassified"
)

// KnownCategories lists the well-known editorial categories in display order.
func KnownCategories() []Category {
	return []Category{
		CategoryAI,
		CategoryBiotech,
		CategoryEnergy,
		CategoryMaterials,
		CategoryRobotics,
		CategorySpace,
	}
}

// Review is the structured editorial verdict produced by the evaluator
// for a single paper.
type Review struct {
	// Score is the editorial significance score, nominally on a 1-10
	// scale. The model is not contractually bound to the range, so
	// consumers compare against thresholds instead of assuming bounds.
	Score int `json:"score"`

	// LaymanSummary is a one-to-two sentence plain-language summary.
	LaymanSummary string `json:"layman_summary"`

	// Category is the assigned subject label.
	Category Category `json:"category"`

	// KeyFindings are up to three concrete results from the paper.
	KeyFindings []string `json:"key_findings"`

	// Implications are up to three practical consequences of the work.
	Implications []string `json:"implications"`

	// TitleHighlights are the most load-bearing words of the title.
	TitleHighlights []string `json:"title_highlights"`
}

// Normalize fills defaults for fields the evaluator may omit: a zero
// category becomes Unclassified and nil list fields become empty slices
// so they serialize as [] rather than null.
func (r *Review) Normalize() {
	if r.Category == "" {
		r.Category = CategoryUnclassified
	}
	if r.KeyFindings == nil {
		r.KeyFindings = []string{}
	}
	if r.Implications == nil {
		r.Implications = []string{}
	}
	if r.TitleHighlights == nil {
		r.TitleHighlights = []string{}
	}
}
