package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ksonoda/recommender/internal/catalog"
	"github.com/ksonoda/recommender/internal/config"
	"github.com/ksonoda/recommender/internal/parse"
	"github.com/ksonoda/recommender/internal/service"
)

// RecommendAPI is the service surface the HTTP handlers expose.
type RecommendAPI interface {
	Recommend(ctx context.Context, req service.RecommendRequest) (*service.RecommendResponse, error)
	ListModels() service.ModelsResponse
	Health() service.HealthResponse
}

var _ RecommendAPI = (*service.RecommendService)(nil)

// Handlers translates HTTP requests into service calls.
type Handlers struct {
	svc    RecommendAPI
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandlers creates the API handler set.
func NewHandlers(svc RecommendAPI, cfg *config.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, cfg: cfg, logger: logger}
}

// Recommend handles POST /recommend.
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	var req service.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserContext == "" {
		writeError(w, http.StatusBadRequest, "user_context is required")
		return
	}

	// Omitted model fields fall back to the configured defaults.
	if req.LLMModel == "" {
		req.LLMModel = h.cfg.DefaultLLMModel
	}
	if req.RerankModel == "" {
		req.RerankModel = h.cfg.DefaultRerankModel
	}
	if req.EmbeddingModel == "" {
		req.EmbeddingModel = h.cfg.DefaultEmbeddingModel
	}

	resp, err := h.svc.Recommend(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Models handles GET /models.
func (h *Handlers) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListModels())
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health())
}

// Readiness handles GET /readyz. The service is ready once at least one
// embedding index is loaded.
func (h *Handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Health().IndexLoaded {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Root handles GET / with a service descriptor.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "recommender",
		"endpoints": map[string]string{
			"recommend": "POST /recommend",
			"models":    "GET /models",
			"health":    "GET /health",
		},
	})
}

// writeServiceError maps pipeline errors onto HTTP status codes. Client
// mistakes map to 4xx, upstream provider failures to 502, and a catalog
// that never finished loading to 503.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stageErr *service.StageError
		parseErr *parse.ParseError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidModel):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrUnknownEmbeddingModel):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotInitialized):
		status = http.StatusServiceUnavailable
	case errors.As(err, &parseErr):
		status = http.StatusBadGateway
	case errors.As(err, &stageErr):
		// Remaining stage failures are upstream provider problems.
		status = http.StatusBadGateway
	}

	h.logger.Error("recommend request failed",
		"status", status,
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
