package api

import (
	"net/http"
	"strings"

	"github.com/okian/focusengine/pkg/logger"
)

// FocusHandler serves player and team focus.
type FocusHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewFocusHandler creates a new focus handler.
func NewFocusHandler(deps Dependencies, log logger.Logger) *FocusHandler {
	return &FocusHandler{deps: deps, log: log}
}

// HandlePlayerFocus handles GET /players/{playerID}/focus.
func (h *FocusHandler) HandlePlayerFocus(w http.ResponseWriter, r *http.Request) {
	playerID := strings.TrimSpace(r.PathValue("playerID"))
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	detail, err := boolParam(r, "includeApproachDetail")
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	focus, err := h.deps.PlayerFocus(r.Context(), playerID, detail)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, focus)
}

// HandleTeamFocus handles GET /coaches/{coachID}/focus.
func (h *FocusHandler) HandleTeamFocus(w http.ResponseWriter, r *http.Request) {
	coachID := strings.TrimSpace(r.PathValue("coachID"))
	if coachID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	team, err := h.deps.TeamFocus(r.Context(), coachID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, team)
}
