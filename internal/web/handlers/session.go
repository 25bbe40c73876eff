package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// SessionHandler controls the live capture session
type SessionHandler struct {
	controller *session.Controller
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(controller *session.Controller) *SessionHandler {
	return &SessionHandler{controller: controller}
}

// StartRequest holds the capture filters. Fields are checked by the controller.
type StartRequest struct {
	SubjectID string `json:"subject_id"`
	Course    string `json:"course"`
	ClassYear string `json:"class_year"`
	Division  string `json:"division"`
	Date      string `json:"date"`
}

// Start starts the camera for a subject
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	status, err := h.controller.Start(r.Context(), session.Params{
		SubjectID: req.SubjectID,
		Course:    req.Course,
		ClassYear: req.ClassYear,
		Division:  req.Division,
		Date:      req.Date,
	})

	var verr *session.ValidationError
	switch {
	case err == nil:
		log.Printf("Capture session %s started for subject %s", status.SessionID, sanitizeForLog(status.Params.SubjectID))
		respondJSON(w, http.StatusOK, status)
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, session.ErrSessionActive), errors.Is(err, session.ErrStartCancelled):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, capture.ErrDeviceUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Stop stops the camera. Stopping an idle session is not an error.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Stop(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.controller.Status())
}

// Status returns the session state and counters
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.Status())
}

// Logs returns the session log, or its last ?recent=N entries
func (h *SessionHandler) Logs(w http.ResponseWriter, r *http.Request) {
	l := h.controller.Log()

	recent := r.URL.Query().Get("recent")
	if recent == "" {
		respondJSON(w, http.StatusOK, l.All())
		return
	}
	n, err := strconv.Atoi(recent)
	if err != nil || n < 0 {
		respondError(w, http.StatusBadRequest, "recent must be a non-negative integer")
		return
	}
	if n == 0 {
		n = constants.RecentLogCount
	}
	respondJSON(w, http.StatusOK, l.Recent(n))
}
