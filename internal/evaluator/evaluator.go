// Package evaluator provides LLM-based editorial evaluation of papers.
//
// This package defines the abstractions and prompt engineering required to
// score a paper's real-world significance and extract structured editorial
// content (summary, findings, implications) from its title and abstract using
// the Gemini API.
//
// Example usage:
//
//	ev := evaluator.NewGemini(cfg, metrics)
//	review, err := ev.Evaluate(ctx, paper)
//	if errors.Is(err, domain.ErrNoAbstract) {
//		// paper cannot be evaluated, skip it
//	}
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skimlabs/curation-service/internal/domain"
)

// Evaluator defines the interface for LLM-based editorial evaluation.
//
// Implementations should handle provider-specific API calls, response
// parsing, and error handling while conforming to this unified interface.
type Evaluator interface {
	// Evaluate scores a paper and extracts structured editorial content.
	// The context should be used for cancellation and deadline propagation.
	//
	// Returns domain.ErrNoAbstract without making any network call when the
	// paper has no abstract. Evaluation failures are not retried; the caller
	// decides whether to skip the paper or abort the run.
	Evaluate(ctx context.Context, paper *domain.Paper) (*domain.Review, error)

	// Model returns the model identifier being used (e.g., "gemini-2.0-flash").
	Model() string
}

// BuildPrompt constructs the editorial evaluation prompt for a paper.
// The scoring rubric bands impact: 1-5 insignificant, 6-7 impactful,
// 8-10 transformative.
func BuildPrompt(paper *domain.Paper) string {
	var sb strings.Builder

	sb.WriteString("You are a ruthless Scientific Editor for \"Peripheral News.\"\n\n")
	sb.WriteString("Analyze this paper based on the following data:\n")
	sb.WriteString("- Title: ")
	sb.WriteString(paper.Title)
	sb.WriteString("\n- Abstract: ")
	sb.WriteString(paper.Abstract)
	sb.WriteString("\n\n")

	sb.WriteString("### TASK 1: THE FILTER (Score 1-10)\n")
	sb.WriteString("Assign a 'score' based on impact:\n")
	sb.WriteString("- 1-5: Insignificant (Internal academic chatter).\n")
	sb.WriteString("- 6-7: Impactful (Real-world usage).\n")
	sb.WriteString("- 8-10: Transformative (Civilization-level shift).\n\n")

	sb.WriteString("### TASK 2: EXTRACTION\n")
	sb.WriteString("Extract these details:\n")
	sb.WriteString("1. 'key_findings': A LIST of specific numbers, key takeaways, or core arguments.\n")
	sb.WriteString("2. 'implications': A LIST of what this enables or why it matters.\n")
	sb.WriteString("3. 'layman_summary': A simple summary.\n")
	sb.WriteString("4. 'category': Classify into one domain (e.g. Bionics, AI, Materials).\n")
	sb.WriteString("5. 'title_highlights': Identify the most important technical keywords/entities found strictly within the TITLE.\n")

	return sb.String()
}

// ParseReview parses a model response into a Review. The model is asked for
// raw JSON but sometimes wraps it in markdown code fences anyway, so those
// are stripped before decoding. Missing optional fields are normalized.
//
// The score is nominally 1-10 per the rubric, but the model is not held to
// it: whatever comes back flows through to the threshold comparison, so an
// over-enthusiastic 11 is still curated rather than lost.
func ParseReview(raw string) (*domain.Review, error) {
	clean := stripFences(raw)

	var review domain.Review
	if err := json.Unmarshal([]byte(clean), &review); err != nil {
		return nil, fmt.Errorf("parsing review JSON: %w", err)
	}

	review.Normalize()
	return &review, nil
}

// stripFences removes markdown code fences from a model response.
func stripFences(raw string) string {
	clean := strings.ReplaceAll(raw, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	return strings.TrimSpace(clean)
}

// responseSchema is the structured output schema sent with each request.
// Gemini constrains its JSON output to match.
var responseSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"score": map[string]interface{}{
			"type":        "integer",
			"description": "Score 1-10 based on wider population impact.",
		},
		"layman_summary": map[string]interface{}{
			"type":        "string",
			"description": "A catchy, 1-sentence news-style headline.",
		},
		"category": map[string]interface{}{
			"type":        "string",
			"description": "The specific sub-field (e.g. 'Robotics', 'Neuroscience').",
		},
		"key_findings": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "3-5 bullet points. Prioritize specific numbers/metrics if available.",
		},
		"implications": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "2-3 bullet points on the practical, real-world consequences.",
		},
		"title_highlights": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "2-4 important technical terms that appear VERBATIM in the TITLE.",
		},
	},
	"required": []string{"score", "layman_summary", "category", "key_findings", "implications", "title_highlights"},
}
