package api

import (
	"net/http"

	"github.com/okian/focusengine/pkg/logger"
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps Dependencies, log logger.Logger) *StatsHandler {
	return &StatsHandler{deps: deps, log: log}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.Stats(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}
