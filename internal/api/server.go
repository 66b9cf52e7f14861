// Package api exposes the service over HTTP: search, download, and local
// subtitle ingestion.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
	"github.com/daniel-lxs/bettersubs/internal/config"
	"github.com/daniel-lxs/bettersubs/internal/download"
	"github.com/daniel-lxs/bettersubs/internal/models"
	"github.com/daniel-lxs/bettersubs/internal/providers/localstore"
	"github.com/daniel-lxs/bettersubs/internal/search"
)

// maxRequestBody caps JSON and subtitle upload bodies.
const maxRequestBody = 2 << 20

// Server handles the HTTP surface.
type Server struct {
	searcher   *search.Orchestrator
	downloader *download.Resolver
	local      *localstore.Adapter
	logger     zerolog.Logger
}

// NewServer creates the handler set over the given components.
func NewServer(searcher *search.Orchestrator, downloader *download.Resolver, local *localstore.Adapter) *Server {
	return &Server{
		searcher:   searcher,
		downloader: downloader,
		local:      local,
		logger:     config.GetLogger().With().Str("component", "api").Logger(),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /subtitle/search", s.handleSearch)
	mux.HandleFunc("GET /subtitle/download", s.handleDownload)
	mux.HandleFunc("POST /subtitle", s.handleIngest)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// NewHTTPServer wraps the handler in a configured http.Server.
func NewHTTPServer(address string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", address, port),
		Handler: handler,
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var opts models.SearchOptions
	body := io.LimitReader(r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&opts); err != nil {
		s.writeError(w, r, apperrors.NewValidationError("request body is not valid JSON"))
		return
	}

	results, err := s.searcher.Search(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []models.Subtitle{}
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	providerParam := r.URL.Query().Get("provider")
	fileID := r.URL.Query().Get("fileId")
	if providerParam == "" || fileID == "" {
		s.writeError(w, r, apperrors.NewValidationError("provider and fileId query parameters are required"))
		return
	}
	provider, err := models.ParseProvider(providerParam)
	if err != nil {
		s.writeError(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := s.downloader.Resolve(r.Context(), download.Request{Provider: provider, FileID: fileID})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, result.Content)
}

// ingestRequest is the upload payload for a locally-hosted subtitle.
type ingestRequest struct {
	Content        string                `json:"content"`
	ReleaseName    string                `json:"releaseName"`
	Comments       string                `json:"comments,omitempty"`
	Language       string                `json:"language"`
	FeatureDetails models.FeatureDetails `json:"featureDetails"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	body := io.LimitReader(r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, r, apperrors.NewValidationError("request body is not valid JSON"))
		return
	}

	sub, err := s.local.Ingest(r.Context(), localstore.IngestRequest{
		Content:        req.Content,
		ReleaseName:    req.ReleaseName,
		Comments:       req.Comments,
		Language:       req.Language,
		FeatureDetails: req.FeatureDetails,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the error taxonomy onto HTTP statuses. Unexpected errors
// are reported to Sentry before the client sees a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, &apperrors.ErrValidation{}):
		status = http.StatusBadRequest
	case errors.Is(err, &apperrors.ErrNotFound{}):
		status = http.StatusNotFound
	case errors.Is(err, &apperrors.ErrUpstream{}), errors.Is(err, &apperrors.ErrAuth{}):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		sentry.CaptureException(err)
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		s.logger.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request rejected")
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}
