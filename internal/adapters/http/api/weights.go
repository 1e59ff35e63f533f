package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/focusengine/pkg/logger"
)

// computeWeightsRequest is the body of POST /internal/compute-weights. Zero
// fields fall back to the service defaults.
type computeWeightsRequest struct {
	WindowSize int `json:"windowSize" validate:"omitempty,min=2,max=10"`
	MinPlayers int `json:"minPlayers" validate:"omitempty,min=10"`
}

// WeightsHandler serves weight calibration and the active weight set.
type WeightsHandler struct {
	deps     Dependencies
	validate *validator.Validate
	log      logger.Logger
}

// NewWeightsHandler creates a new weights handler.
func NewWeightsHandler(deps Dependencies, v *validator.Validate, log logger.Logger) *WeightsHandler {
	return &WeightsHandler{deps: deps, validate: v, log: log}
}

// HandleCompute handles POST /internal/compute-weights.
func (h *WeightsHandler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeWeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(w, r, h.log, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		fail(w, r, h.log, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	set, err := h.deps.ComputeWeights(r.Context(), req.WindowSize, req.MinPlayers)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, set)
}

// HandleCurrent handles GET /weights.
func (h *WeightsHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	set, err := h.deps.CurrentWeights(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, set)
}
