package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/skimlabs/curation-service/internal/domain"
	"github.com/skimlabs/curation-service/internal/topics"
)

const (
	// maxRequestBodySize limits request bodies to 1MB.
	maxRequestBodySize = 1 << 20

	// maxListLimit caps list endpoint page sizes.
	maxListLimit = 200
)

// searchRequest is the JSON request body for an on-demand arXiv search.
type searchRequest struct {
	Query string `json:"query" validate:"required,min=2,max=300"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=25"`
}

// listTopics handles GET /api/v1/topics. It returns the scouting taxonomy
// grouped by discipline hub.
func (s *Server) listTopics(w http.ResponseWriter, r *http.Request) {
	names := topics.HubNames()
	hubs := make([]hubResponse, 0, len(names))
	for _, name := range names {
		hubs = append(hubs, hubResponse{Name: name, Topics: topics.ForHub(name)})
	}
	writeJSON(w, http.StatusOK, topicsResponse{Hubs: hubs})
}

// listPapers handles GET /api/v1/papers?topic=...&limit=...&offset=...
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic == "" {
		writeError(w, http.StatusBadRequest, "topic query parameter is required")
		return
	}

	limit, err := parseIntParam(r, "limit", 0, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parseIntParam(r, "offset", 0, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	papers, err := s.repo.ListByTopic(ctx, topic, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("failed to list papers")
		writeDomainError(w, err)
		return
	}

	total, err := s.repo.CountByTopic(ctx, topic)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("failed to count papers")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Papers:     toPaperResponses(papers),
		TotalCount: int(total),
		Limit:      limit,
		Offset:     offset,
	})
}

// listTopPapers handles GET /api/v1/papers/top.
func (s *Server) listTopPapers(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", 0, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	papers, err := s.repo.ListTopRated(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list top rated papers")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Papers:     toPaperResponses(papers),
		TotalCount: len(papers),
		Limit:      limit,
	})
}

// listRecentPapers handles GET /api/v1/papers/recent.
func (s *Server) listRecentPapers(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", 0, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	papers, err := s.repo.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list recent papers")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Papers:     toPaperResponses(papers),
		TotalCount: len(papers),
		Limit:      limit,
	})
}

// getPaper handles GET /api/v1/papers/{paperID}.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "paperID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid paper ID format")
		return
	}

	paper, err := s.repo.GetByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Str("paper_id", id.String()).Msg("failed to get paper")
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPaperResponse(paper))
}

// searchArxiv handles POST /api/v1/search. Results are scored live and are
// not persisted.
func (s *Server) searchArxiv(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)

	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	papers := s.searcher.SearchArxiv(r.Context(), req.Query, req.Limit)

	resp := searchResponse{
		Query:      req.Query,
		Papers:     toPaperResponses(papers),
		TotalCount: len(papers),
	}
	if len(papers) == 0 {
		resp.Message = "No results found. Try a broader query."
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseIntParam parses a non-negative integer query parameter. A missing or
// empty parameter yields zero, which list endpoints treat as "use the
// default". max of zero means unbounded.
func parseIntParam(r *http.Request, name string, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	if max > 0 && v > max {
		return 0, fmt.Errorf("%s must be at most %d", name, max)
	}
	return v, nil
}

// validationMessage renders the first field error of a validator failure as
// a client-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", field)
		case "min":
			return fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "max":
			return fmt.Sprintf("%s must be at most %s", field, fe.Param())
		default:
			return fmt.Sprintf("%s is invalid", field)
		}
	}
	return "invalid request"
}

// writeDomainError maps domain errors to appropriate HTTP status codes and
// writes a JSON error response. Internal error details are not leaked to
// clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
