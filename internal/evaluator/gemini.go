package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skimlabs/curation-service/internal/config"
	"github.com/skimlabs/curation-service/internal/domain"
	"github.com/skimlabs/curation-service/internal/observability"
)

// Default values for the Gemini provider.
const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"
)

// generateRequest represents the Gemini generateContent API request body.
type generateRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// geminiContent represents a single conversation turn.
type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

// geminiPart represents a piece of content within a turn.
type geminiPart struct {
	Text string `json:"text"`
}

// generationConfig controls the model's output format. ResponseSchema
// constrains the output to valid JSON matching the review structure.
type generationConfig struct {
	ResponseMIMEType string      `json:"responseMimeType"`
	ResponseSchema   interface{} `json:"responseSchema,omitempty"`
	Temperature      *float64    `json:"temperature,omitempty"`
}

// generateResponse represents the Gemini generateContent API response body.
type generateResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	UsageMeta  *geminiUsage      `json:"usageMetadata,omitempty"`
}

// geminiCandidate represents a single generated candidate.
type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

// geminiUsage contains token usage information.
type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// geminiErrorResponse represents an error response from the Gemini API.
type geminiErrorResponse struct {
	Error geminiErrorDetail `json:"error"`
}

// geminiErrorDetail contains error details from the Gemini API.
type geminiErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Gemini implements Evaluator using the Gemini generateContent API.
type Gemini struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	metrics    *observability.Metrics
}

// NewGemini creates a new Gemini evaluation provider from configuration.
// The metrics handle may be nil.
//
// Requests use structured output (responseSchema) so the model returns the
// review as JSON. Evaluation failures are not retried here; a failed paper
// is simply a candidate for the next run.
func NewGemini(cfg config.EvaluatorConfig, metrics *observability.Metrics) *Gemini {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Gemini{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		metrics: metrics,
	}
}

// Evaluate scores a paper and extracts structured editorial content.
//
// Papers without an abstract cannot be meaningfully judged, so Evaluate
// returns domain.ErrNoAbstract before any network call is made.
func (g *Gemini) Evaluate(ctx context.Context, paper *domain.Paper) (*domain.Review, error) {
	if paper == nil {
		return nil, fmt.Errorf("gemini: nil paper: %w", domain.ErrInvalidInput)
	}
	if !paper.HasAbstract() {
		return nil, fmt.Errorf("gemini: paper %q: %w", paper.Title, domain.ErrNoAbstract)
	}

	genReq := generateRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: BuildPrompt(paper)}}},
		},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema,
		},
	}

	return g.doRequest(ctx, genReq)
}

// Model returns the model identifier being used.
func (g *Gemini) Model() string {
	return g.model
}

// doRequest performs a single API request to the generateContent endpoint.
func (g *Gemini) doRequest(ctx context.Context, genReq generateRequest) (*domain.Review, error) {
	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("gemini: request cancelled: %w", err)
		}
		g.recordFailure("network")
		return nil, &APIError{Provider: "gemini", StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.recordFailure(errorTypeForStatus(resp.StatusCode))
		return nil, parseGeminiAPIError(resp.StatusCode, respBody)
	}

	if g.metrics != nil {
		g.metrics.RecordEvaluatorRequest(g.model, time.Since(start).Seconds())
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("gemini: failed to unmarshal response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: empty candidates in response")
	}

	review, err := ParseReview(genResp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	return review, nil
}

// recordFailure records a failed evaluator request if metrics are wired.
func (g *Gemini) recordFailure(errorType string) {
	if g.metrics != nil {
		g.metrics.RecordEvaluatorRequestFailed(g.model, errorType)
	}
}

// errorTypeForStatus maps an HTTP status to a failure label.
func errorTypeForStatus(statusCode int) string {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 500:
		return "server_error"
	default:
		return "api_error"
	}
}

// parseGeminiAPIError parses a Gemini API error from the response status code and body.
func parseGeminiAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "gemini",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp geminiErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Status
	}

	return apiErr
}
