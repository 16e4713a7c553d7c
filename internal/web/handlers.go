package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/compatdb/internal/core"
	"github.com/go-chi/chi/v5"
)

// maxContentBody bounds PATCH bodies; the service enforces the content limit.
const maxContentBody = core.MaxPresentationContentBytes + 4<<10

type healthResponse struct {
	Status       string                   `json:"status"`
	Records      int64                    `json:"records"`
	Imports      core.ImportLimiterStatus `json:"imports"`
	IndexBuiltAt *time.Time               `json:"indexBuiltAt,omitempty"`
}

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		s.respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	n, err := s.service.Count(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	resp := healthResponse{
		Status:  "ok",
		Records: n,
		Imports: s.service.ImportLimiter().Status(),
	}
	if builtAt := s.service.IndexBuiltAt(); !builtAt.IsZero() {
		resp.IndexBuiltAt = &builtAt
	}
	writeJSON(w, http.StatusOK, resp)
}

type searchResponse struct {
	Query string           `json:"query"`
	Hits  []core.SearchHit `json:"hits"`
}

// handleSearch: GET /api/records/search?q=&limit=&vipOnly=&freeOnly=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := parseOptionalInt(q.Get("limit"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: limit: %v", core.ErrInvalidInput, err), 0)
		return
	}
	limit = min(limit, s.cfg.Search.MaxLimit)

	vipOnly, err := parseOptionalBool(q.Get("vipOnly"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: vipOnly: %v", core.ErrInvalidInput, err), 0)
		return
	}
	freeOnly, err := parseOptionalBool(q.Get("freeOnly"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: freeOnly: %v", core.ErrInvalidInput, err), 0)
		return
	}

	hits, err := s.service.Search(r.Context(), core.SearchRequest{
		Query:    q.Get("q"),
		Limit:    limit,
		VIPOnly:  vipOnly,
		FreeOnly: freeOnly,
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Query: q.Get("q"), Hits: hits})
}

// handleSample: GET /api/records/sample?size=
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Sample(r.Context(), core.ParseSampleSize(r.URL.Query().Get("size")))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetRecord: GET /api/records/{id}
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	rec, err := s.service.GetRecord(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type updateContentRequest struct {
	PresentationContent *string `json:"presentationContent"`
}

// handleUpdateContent: PATCH /api/records/{id}/content
func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	var req updateContentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxContentBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: decode body: %v", core.ErrInvalidInput, err), 0)
		return
	}
	if req.PresentationContent == nil {
		s.respondError(w, r, fmt.Errorf("%w: presentationContent is required", core.ErrInvalidInput), 0)
		return
	}

	rec, err := s.service.UpdatePresentationContent(r.Context(), id, *req.PresentationContent)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleImportPreview: POST /api/import/preview
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	var preview *core.ImportPreview
	err := s.withTempUpload(w, r, func(path string) error {
		var err error
		preview, err = s.service.PreviewImport(r.Context(), path)
		return err
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// handleImportCommit: POST /api/import/commit
func (s *Server) handleImportCommit(w http.ResponseWriter, r *http.Request) {
	var result *core.ImportResult
	err := s.withTempUpload(w, r, func(path string) error {
		var err error
		result, err = s.service.CommitImport(r.Context(), path)
		return err
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type rebuildResponse struct {
	Records int       `json:"records"`
	BuiltAt time.Time `json:"builtAt"`
}

// handleRebuildIndex: POST /api/index/rebuild
func (s *Server) handleRebuildIndex(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.RebuildIndex(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, rebuildResponse{Records: n, BuiltAt: s.service.IndexBuiltAt()})
}

func recordID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid record id %q", core.ErrInvalidInput, raw)
	}
	return id, nil
}

// parseOptionalInt returns 0 for an empty value.
func parseOptionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return n, nil
}

// parseOptionalBool returns false for an empty value.
func parseOptionalBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
