package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skimlabs/curation-service/internal/config"
	"github.com/skimlabs/curation-service/internal/domain"
	"github.com/skimlabs/curation-service/internal/observability"
)

func testPaper() *domain.Paper {
	return &domain.Paper{
		Title:    "Attention Is All You Need",
		Abstract: "We propose a new network architecture, the Transformer, based solely on attention mechanisms.",
		Venue:    "NeurIPS",
	}
}

const sampleReviewJSON = `{
	"score": 9,
	"layman_summary": "A new AI architecture processes language without reading word by word.",
	"category": "AI & Computing",
	"key_findings": ["Removes recurrence entirely", "28.4 BLEU on WMT 2014 En-De", "Trains in 3.5 days on 8 GPUs"],
	"implications": ["Enables massively parallel training", "Foundation for large language models"],
	"title_highlights": ["Attention"]
}`

func geminiResponse(text string) string {
	resp := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]interface{}{{"text": text}},
					"role":  "model",
				},
				"finishReason": "STOP",
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(testPaper())

	assert.Contains(t, prompt, "ruthless Scientific Editor")
	assert.Contains(t, prompt, "Attention Is All You Need")
	assert.Contains(t, prompt, "the Transformer")
	assert.Contains(t, prompt, "1-5: Insignificant")
	assert.Contains(t, prompt, "6-7: Impactful")
	assert.Contains(t, prompt, "8-10: Transformative")
	assert.Contains(t, prompt, "title_highlights")
}

func TestParseReview(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		review, err := ParseReview(sampleReviewJSON)
		require.NoError(t, err)

		assert.Equal(t, 9, review.Score)
		assert.Equal(t, domain.CategoryAI, review.Category)
		assert.Len(t, review.KeyFindings, 3)
		assert.Len(t, review.Implications, 2)
		assert.Equal(t, []string{"Attention"}, review.TitleHighlights)
	})

	t.Run("fenced JSON", func(t *testing.T) {
		fenced := "```json\n" + sampleReviewJSON + "\n```"
		review, err := ParseReview(fenced)
		require.NoError(t, err)
		assert.Equal(t, 9, review.Score)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseReview("not json at all")
		assert.Error(t, err)
	})

	t.Run("score outside the nominal scale passes through", func(t *testing.T) {
		review, err := ParseReview(`{"score": 11, "layman_summary": "x", "category": "AI"}`)
		require.NoError(t, err)
		assert.Equal(t, 11, review.Score)

		review, err = ParseReview(`{"score": 0, "layman_summary": "x", "category": "AI"}`)
		require.NoError(t, err)
		assert.Equal(t, 0, review.Score)
	})

	t.Run("missing category normalized", func(t *testing.T) {
		review, err := ParseReview(`{"score": 7, "layman_summary": "x"}`)
		require.NoError(t, err)
		assert.Equal(t, domain.CategoryUnclassified, review.Category)
		assert.NotNil(t, review.KeyFindings)
		assert.NotNil(t, review.TitleHighlights)
	})
}

func TestGeminiEvaluate(t *testing.T) {
	var gotReq generateRequest
	var gotHeader string
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, geminiResponse(sampleReviewJSON))
	}))
	defer server.Close()

	g := NewGemini(config.EvaluatorConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.0-flash",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, nil)

	review, err := g.Evaluate(context.Background(), testPaper())
	require.NoError(t, err)

	assert.Equal(t, 9, review.Score)
	assert.Equal(t, domain.CategoryAI, review.Category)

	assert.Equal(t, "/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotHeader)

	require.Len(t, gotReq.Contents, 1)
	assert.Contains(t, gotReq.Contents[0].Parts[0].Text, "Attention Is All You Need")
	assert.Equal(t, "application/json", gotReq.GenerationConfig.ResponseMIMEType)
	assert.NotNil(t, gotReq.GenerationConfig.ResponseSchema)
}

func TestGeminiEvaluateFencedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, geminiResponse("```json\n"+sampleReviewJSON+"\n```"))
	}))
	defer server.Close()

	g := NewGemini(config.EvaluatorConfig{APIKey: "k", BaseURL: server.URL}, nil)

	review, err := g.Evaluate(context.Background(), testPaper())
	require.NoError(t, err)
	assert.Equal(t, 9, review.Score)
}

func TestGeminiEvaluateNoAbstract(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer server.Close()

	g := NewGemini(config.EvaluatorConfig{APIKey: "k", BaseURL: server.URL}, nil)

	paper := testPaper()
	paper.Abstract = "   "

	_, err := g.Evaluate(context.Background(), paper)
	assert.ErrorIs(t, err, domain.ErrNoAbstract)
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls), "no network call should be made")
}

func TestGeminiEvaluateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"}}`)
	}))
	defer server.Close()

	g := NewGemini(config.EvaluatorConfig{APIKey: "k", BaseURL: server.URL}, nil)

	_, err := g.Evaluate(context.Background(), testPaper())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "gemini", apiErr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "Resource has been exhausted", apiErr.Message)
	assert.Equal(t, "RESOURCE_EXHAUSTED", apiErr.Type)
	assert.True(t, apiErr.IsTransient())
}

func TestGeminiRecordsMetrics(t *testing.T) {
	var status atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := int(status.Load())
		w.WriteHeader(code)
		if code == http.StatusOK {
			fmt.Fprint(w, geminiResponse(sampleReviewJSON))
		}
	}))
	defer server.Close()

	m := observability.NewMetrics("test_gemini")
	g := NewGemini(config.EvaluatorConfig{APIKey: "k", Model: "gemini-2.0-flash", BaseURL: server.URL}, m)

	status.Store(http.StatusOK)
	_, err := g.Evaluate(context.Background(), testPaper())
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvaluatorRequestsTotal.WithLabelValues("gemini-2.0-flash")))

	status.Store(http.StatusTooManyRequests)
	_, err = g.Evaluate(context.Background(), testPaper())
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvaluatorRequestsFailed.WithLabelValues("gemini-2.0-flash", "rate_limited")))

	status.Store(http.StatusInternalServerError)
	_, err = g.Evaluate(context.Background(), testPaper())
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvaluatorRequestsFailed.WithLabelValues("gemini-2.0-flash", "server_error")))
}

func TestGeminiEvaluateEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates": []}`)
	}))
	defer server.Close()

	g := NewGemini(config.EvaluatorConfig{APIKey: "k", BaseURL: server.URL}, nil)

	_, err := g.Evaluate(context.Background(), testPaper())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty candidates")
}

func TestAPIErrorIsTransient(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"network error", 0, true},
		{"rate limited", 429, true},
		{"server error", 500, true},
		{"bad gateway", 502, true},
		{"bad request", 400, false},
		{"forbidden", 403, false},
		{"not found", 404, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &APIError{Provider: "gemini", StatusCode: tt.status, Message: "boom"}
			assert.Equal(t, tt.transient, err.IsTransient())
		})
	}
}

func TestGeminiDefaults(t *testing.T) {
	g := NewGemini(config.EvaluatorConfig{APIKey: "k"}, nil)
	assert.Equal(t, defaultGeminiModel, g.Model())
	assert.Equal(t, defaultGeminiBaseURL, g.baseURL)
}
