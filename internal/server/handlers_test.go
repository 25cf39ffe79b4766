package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skimlabs/curation-service/internal/domain"
	"github.com/skimlabs/curation-service/internal/topics"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockCuratedRepo implements repository.CuratedPaperRepository for handler tests.
type mockCuratedRepo struct {
	insertFn                func(ctx context.Context, paper *domain.CuratedPaper) (*domain.CuratedPaper, error)
	getByIDFn               func(ctx context.Context, id uuid.UUID) (*domain.CuratedPaper, error)
	getByTitleFn            func(ctx context.Context, title string) (*domain.CuratedPaper, error)
	updateFieldsFn          func(ctx context.Context, id uuid.UUID, updates domain.UpdateFields) error
	listByTopicFn           func(ctx context.Context, topic string, limit, offset int) ([]*domain.CuratedPaper, error)
	listTopRatedFn          func(ctx context.Context, limit int) ([]*domain.CuratedPaper, error)
	listRecentFn            func(ctx context.Context, limit int) ([]*domain.CuratedPaper, error)
	listMissingEnrichmentFn func(ctx context.Context, limit int) ([]*domain.CuratedPaper, error)
	listMissingHighlightsFn func(ctx context.Context, limit int) ([]*domain.CuratedPaper, error)
	countByTopicFn          func(ctx context.Context, topic string) (int64, error)
	deleteFn                func(ctx context.Context, id uuid.UUID) error
}

func (m *mockCuratedRepo) Insert(ctx context.Context, paper *domain.CuratedPaper) (*domain.CuratedPaper, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, paper)
	}
	return paper, nil
}

func (m *mockCuratedRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CuratedPaper, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockCuratedRepo) GetByTitle(ctx context.Context, title string) (*domain.CuratedPaper, error) {
	if m.getByTitleFn != nil {
		return m.getByTitleFn(ctx, title)
	}
	return nil, domain.ErrNotFound
}

func (m *mockCuratedRepo) UpdateFields(ctx context.Context, id uuid.UUID, updates domain.UpdateFields) error {
	if m.updateFieldsFn != nil {
		return m.updateFieldsFn(ctx, id, updates)
	}
	return nil
}

func (m *mockCuratedRepo) ListByTopic(ctx context.Context, topic string, limit, offset int) ([]*domain.CuratedPaper, error) {
	if m.listByTopicFn != nil {
		return m.listByTopicFn(ctx, topic, limit, offset)
	}
	return nil, nil
}

func (m *mockCuratedRepo) ListTopRated(ctx context.Context, limit int) ([]*domain.CuratedPaper, error) {
	if m.listTopRatedFn != nil {
		return m.listTopRatedFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockCuratedRepo) ListRecent(ctx context.Context, limit int) ([]*domain.CuratedPaper, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockCuratedRepo) ListMissingEnrichment(ctx context.Context, limit int) ([]*domain.CuratedPaper, error) {
	if m.listMissingEnrichmentFn != nil {
		return m.listMissingEnrichmentFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockCuratedRepo) ListMissingHighlights(ctx context.Context, limit int) ([]*domain.CuratedPaper, error) {
	if m.listMissingHighlightsFn != nil {
		return m.listMissingHighlightsFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockCuratedRepo) CountByTopic(ctx context.Context, topic string) (int64, error) {
	if m.countByTopicFn != nil {
		return m.countByTopicFn(ctx, topic)
	}
	return 0, nil
}

func (m *mockCuratedRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockSearcher implements Searcher for handler tests.
type mockSearcher struct {
	searchFn func(ctx context.Context, query string, limit int) []*domain.CuratedPaper
}

func (m *mockSearcher) SearchArxiv(ctx context.Context, query string, limit int) []*domain.CuratedPaper {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return []*domain.CuratedPaper{}
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// newTestHTTPServer creates a Server configured for testing with mocked dependencies.
func newTestHTTPServer(repo *mockCuratedRepo, searcher Searcher) *Server {
	s := &Server{
		repo:     repo,
		searcher: searcher,
		validate: validator.New(),
		logger:   zerolog.Nop(),
	}
	s.router = s.buildRouter()
	return s
}

// serveHTTP dispatches a request through the test server's router and returns the recorder.
func serveHTTP(s *Server, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, r)
	return rr
}

// decodeJSON decodes a JSON response body into the given target.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func testCuratedPaper(n int) *domain.CuratedPaper {
	return &domain.CuratedPaper{
		ID:              uuid.New(),
		Title:           fmt.Sprintf("Paper %d", n),
		Date:            "2025-05-01",
		Authors:         "Alice A, Bob B",
		Summary:         "A readable summary.",
		URL:             fmt.Sprintf("https://doi.org/10.1000/%d", n),
		Journal:         "Nature",
		Score:           8,
		Category:        domain.CategoryBiotech,
		Topic:           "Neuroscience",
		PaperID:         fmt.Sprintf("s2-%d", n),
		CitationCount:   42,
		KeyFindings:     []string{"finding"},
		Implications:    []string{"implication"},
		TitleHighlights: []string{"Paper"},
		DateAdded:       time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthHandler(t *testing.T) {
	srv := newTestHTTPServer(&mockCuratedRepo{}, &mockSearcher{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %q", resp["status"])
	}
}

func TestReadinessHandler_NoDatabase(t *testing.T) {
	srv := newTestHTTPServer(&mockCuratedRepo{}, &mockSearcher{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestListTopics(t *testing.T) {
	srv := newTestHTTPServer(&mockCuratedRepo{}, &mockSearcher{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/topics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp topicsResponse
	decodeJSON(t, rr, &resp)
	if len(resp.Hubs) != len(topics.HubNames()) {
		t.Fatalf("expected %d hubs, got %d", len(topics.HubNames()), len(resp.Hubs))
	}
	for _, hub := range resp.Hubs {
		if hub.Name == "" || len(hub.Topics) == 0 {
			t.Errorf("hub %q has no topics", hub.Name)
		}
	}
}

func TestListPapers_Success(t *testing.T) {
	var gotTopic string
	var gotLimit, gotOffset int
	repo := &mockCuratedRepo{
		listByTopicFn: func(_ context.Context, topic string, limit, offset int) ([]*domain.CuratedPaper, error) {
			gotTopic, gotLimit, gotOffset = topic, limit, offset
			return []*domain.CuratedPaper{testCuratedPaper(1), testCuratedPaper(2)}, nil
		},
		countByTopicFn: func(_ context.Context, topic string) (int64, error) {
			return 17, nil
		},
	}
	srv := newTestHTTPServer(repo, &mockSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/papers?topic=Neuroscience&limit=2&offset=4", nil)
	rr := serveHTTP(srv, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotTopic != "Neuroscience" || gotLimit != 2 || gotOffset != 4 {
		t.Errorf("unexpected list args: topic=%q limit=%d offset=%d", gotTopic, gotLimit, gotOffset)
	}

	var resp listPapersResponse
	decodeJSON(t, rr, &resp)
	if len(resp.Papers) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(resp.Papers))
	}
	if resp.TotalCount != 17 {
		t.Errorf("expected total_count 17, got %d", resp.TotalCount)
	}
	if resp.Papers[0].Title != "Paper 1" {
		t.Errorf("expected Paper 1, got %q", resp.Papers[0].Title)
	}
	if resp.Papers[0].Category != string(domain.CategoryBiotech) {
		t.Errorf("unexpected category %q", resp.Papers[0].Category)
	}
}

func TestListPapers_MissingTopic(t *testing.T) {
	srv := newTestHTTPServer(&mockCuratedRepo{}, &mockSearcher{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if !strings.Contains(resp["error"], "topic") {
		t.Errorf("expected topic error, got %q", resp["error"])
	}
}

func TestListPapers_InvalidLimit(t *testing.T) {
	srv := newTestHTTPServer(&mockCuratedRepo{}, &mockSearcher{})

	for _, q := range []string{"limit=abc", "limit=-1", "limit=9999"} {
		rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers?topic=Physics&"+q, nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", q, rr.Code)
		}
	}
}

func TestListPapers_RepositoryError(t *testing.T) {
	repo := &mockCuratedRepo{
		listByTopicFn: func(context.Context, string, int, int) ([]*domain.CuratedPaper, error) {
			return nil, errors.New("connection reset")
		},
	}
	srv := newTestHTTPServer(repo, &mockSearcher{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers?topic=Physics", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "internal server error" {
		t.Errorf("internal details leaked: %q", resp["error"])
	}
}

func TestListTopPapers(t *testing.T) {
	repo := &mockCuratedRepo{
		listTopRatedFn: func(_ context.Context, limit int) ([]*domain.CuratedPaper, error) {
			if limit != 5 {
				t.Errorf("expected limit 5, got %d", limit)
			}
			return []*domain.CuratedPaper{testCuratedPaper(1)}, nil
		},
	}
	srv := newTestHTTPServer(repo, &mockSearcher{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/top?limit=5", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp listPapersResponse
	decodeJSON(t, rr, &resp)
	if len(resp.Papers) != 1 || resp.TotalCount != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestListRecentPapers(t *testing.T) {
	repo := &mockCuratedRepo{
		listRecentFn: func(_ context.Context, limit int) ([]*domain.CuratedPaper, error) {
			return []*domain.CuratedPaper{testCuratedPaper(3), testCuratedPaper(4)}, nil
		},
	}
	srv := newTestHTTPServer(repo, &mockSearcher{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/recent", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp listPapersResponse
	decodeJSON(t, rr, &resp)
	if len(resp.Papers) != 2 {
		t.Errorf("expected 2 papers, got %d", len(resp.Papers))
	}
}

func TestGetPaper_Success(t *testing.T) {
	paper := testCuratedPaper(1)
	repo := &mockCuratedRepo{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*domain.CuratedPaper, error) {
			if id != paper.ID {
				return nil, domain.ErrNotFound
			}
			return paper, nil
		},
	}
	srv := newTestHTTPServer(repo, &mockSearcher{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/"+paper.ID.String(), nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp paperResponse
	decodeJSON(t, rr, &resp)
	if resp.ID != paper.ID.String() || resp.Title != paper.Title {
		t.Errorf("unexpected paper: %+v", resp)
	}
}

func TestGetPaper_NotFound(t *testing.T) {
	srv := newTestHTTPServer(&mockCuratedRepo{}, &mockSearcher{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/"+uuid.NewString(), nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestGetPaper_InvalidUUID(t *testing.T) {
	srv := newTestHTTPServer(&mockCuratedRepo{}, &mockSearcher{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/not-a-uuid", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestSearchArxiv_Success(t *testing.T) {
	var gotQuery string
	var gotLimit int
	searcher := &mockSearcher{
		searchFn: func(_ context.Context, query string, limit int) []*domain.CuratedPaper {
			gotQuery, gotLimit = query, limit
			return []*domain.CuratedPaper{testCuratedPaper(1)}
		},
	}
	srv := newTestHTTPServer(&mockCuratedRepo{}, searcher)

	body := `{"query":"  spiking neural networks ","limit":4}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	rr := serveHTTP(srv, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotQuery != "spiking neural networks" {
		t.Errorf("expected trimmed query, got %q", gotQuery)
	}
	if gotLimit != 4 {
		t.Errorf("expected limit 4, got %d", gotLimit)
	}

	var resp searchResponse
	decodeJSON(t, rr, &resp)
	if resp.TotalCount != 1 || len(resp.Papers) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Message != "" {
		t.Errorf("expected no message for non-empty results, got %q", resp.Message)
	}
}

func TestSearchArxiv_NoResults(t *testing.T) {
	srv := newTestHTTPServer(&mockCuratedRepo{}, &mockSearcher{})

	body := `{"query":"extremely obscure topic"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(body))
	rr := serveHTTP(srv, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp searchResponse
	decodeJSON(t, rr, &resp)
	if len(resp.Papers) != 0 {
		t.Errorf("expected no papers, got %d", len(resp.Papers))
	}
	if resp.Message == "" {
		t.Error("expected a user-facing message for empty results")
	}
}

func TestSearchArxiv_Validation(t *testing.T) {
	srv := newTestHTTPServer(&mockCuratedRepo{}, &mockSearcher{})

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing query", `{}`, "query is required"},
		{"blank query", `{"query":"   "}`, "query is required"},
		{"query too short", `{"query":"a"}`, "query must be at least 2"},
		{"limit too large", `{"query":"transformers","limit":100}`, "limit must be at most 25"},
		{"invalid json", `{"query":`, "invalid JSON request body"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(tc.body))
			rr := serveHTTP(srv, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp map[string]string
			decodeJSON(t, rr, &resp)
			if !strings.Contains(resp["error"], tc.want) {
				t.Errorf("expected error containing %q, got %q", tc.want, resp["error"])
			}
		})
	}
}

func TestWriteDomainError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.NewValidationError("title", "must not be empty"), http.StatusBadRequest},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rr := httptest.NewRecorder()
		writeDomainError(rr, tc.err)
		if rr.Code != tc.want {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.want, rr.Code)
		}
	}
}
