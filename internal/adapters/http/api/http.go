// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/focusengine/internal/adapters/archive"
	service "github.com/okian/focusengine/internal/app"
	"github.com/okian/focusengine/internal/domain/ingest"
	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/internal/domain/types"
	"github.com/okian/focusengine/internal/domain/weights"
	"github.com/okian/focusengine/pkg/logger"
)

// DefaultMaxUploadBytes bounds an ingestion archive upload.
const DefaultMaxUploadBytes = 256 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Ingest(ctx context.Context, data []byte, force bool) (ingest.Result, error)
	ComputeWeights(ctx context.Context, windowSize, minPlayers int) (model.ComponentWeightSet, error)
	CurrentWeights(ctx context.Context) (model.ComponentWeightSet, error)
	PlayerFocus(ctx context.Context, playerID string, includeApproachDetail bool) (types.PlayerFocus, error)
	TeamFocus(ctx context.Context, coachID string) (types.TeamFocus, error)
	Stats(ctx context.Context) (types.IngestionStats, error)
}

// Server wires HTTP routes for the focus engine.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	ingestHandler  *IngestHandler
	weightsHandler *WeightsHandler
	focusHandler   *FocusHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := options{
		maxUploadBytes: DefaultMaxUploadBytes,
		log:            logger.NamedOrNop("http"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	v := validator.New()
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps, o.log),
		ingestHandler:  NewIngestHandler(deps, o.maxUploadBytes, o.log),
		weightsHandler: NewWeightsHandler(deps, v, o.log),
		focusHandler:   NewFocusHandler(deps, o.log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /internal/ingest", MetricsMiddleware(s.ingestHandler.HandleIngest, "ingest"))
	mux.HandleFunc("POST /internal/compute-weights", MetricsMiddleware(s.weightsHandler.HandleCompute, "compute_weights"))
	mux.HandleFunc("GET /weights", MetricsMiddleware(s.weightsHandler.HandleCurrent, "weights"))
	mux.HandleFunc("GET /players/{playerID}/focus", MetricsMiddleware(s.focusHandler.HandlePlayerFocus, "player_focus"))
	mux.HandleFunc("GET /coaches/{coachID}/focus", MetricsMiddleware(s.focusHandler.HandleTeamFocus, "team_focus"))
}

// envelope is the body of every JSON response.
type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, envelope{Error: &errorResponse{Code: code, Message: msg}})
}

// classify maps domain errors to a status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, weights.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "insufficient_data"
	case errors.Is(err, service.ErrPlayerNotFound):
		return http.StatusNotFound, "player_not_found"
	case errors.Is(err, weights.ErrNoActiveWeights):
		return http.StatusNotFound, "no_active_weights"
	case errors.Is(err, service.ErrIngestInProgress):
		return http.StatusConflict, "ingest_in_progress"
	case errors.Is(err, ErrBodyTooLarge), errors.Is(err, archive.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrEmptyBody), errors.Is(err, archive.ErrInvalidArchive):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail writes err with its classified status and logs server errors.
func fail(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}
