package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/gate"
)

// GateHandler exposes the attendance window panel
type GateHandler struct {
	panel *gate.Panel
}

// NewGateHandler creates a new gate handler
func NewGateHandler(panel *gate.Panel) *GateHandler {
	return &GateHandler{panel: panel}
}

// SetGateRequest sets the window to an explicit value
type SetGateRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// Check queries the window of a subject and reveals its toggle
func (h *GateHandler) Check(w http.ResponseWriter, r *http.Request) {
	st, err := h.panel.Check(r.Context(), chi.URLParam(r, "subjectId"))
	if err != nil {
		respondBackendError(w, "Checking attendance window", err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// Toggle flips the window of a previously checked subject
func (h *GateHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	st, err := h.panel.Flip(r.Context(), chi.URLParam(r, "subjectId"))
	h.respond(w, st, err)
}

// Set enables or disables the window of a previously checked subject
func (h *GateHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req SetGateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.panel.Set(r.Context(), chi.URLParam(r, "subjectId"), *req.Enabled)
	h.respond(w, st, err)
}

func (h *GateHandler) respond(w http.ResponseWriter, st gate.State, err error) {
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, st)
	case errors.Is(err, gate.ErrNotRevealed):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondBackendError(w, "Toggling attendance window", err)
	}
}
