package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// HistoryHandler serves recorded capture sessions
type HistoryHandler struct {
	reader func() (database.SessionReader, error)
}

// NewHistoryHandler creates a history handler backed by the registered database
func NewHistoryHandler() *HistoryHandler {
	return &HistoryHandler{reader: database.GetSessionReader}
}

// newHistoryHandlerWithReader is used by tests
func newHistoryHandlerWithReader(reader database.SessionReader) *HistoryHandler {
	return &HistoryHandler{reader: func() (database.SessionReader, error) { return reader, nil }}
}

// SessionResponse represents a recorded capture session in API responses
type SessionResponse struct {
	ID               string     `json:"id"`
	SubjectID        string     `json:"subject_id"`
	Course           string     `json:"course"`
	ClassYear        string     `json:"class_year"`
	Division         string     `json:"division,omitempty"`
	Date             string     `json:"date"`
	TeacherID        string     `json:"teacher_id"`
	Device           string     `json:"device"`
	StartedAt        time.Time  `json:"started_at"`
	StoppedAt        *time.Time `json:"stopped_at,omitempty"`
	DurationSeconds  float64    `json:"duration_seconds"`
	FramesCaptured   int        `json:"frames_captured"`
	FramesDropped    int        `json:"frames_dropped"`
	BatchesSubmitted int        `json:"batches_submitted"`
	BatchesFailed    int        `json:"batches_failed"`
}

// SubmissionResponse represents one submission attempt in API responses
type SubmissionResponse struct {
	Attempt    int       `json:"attempt"`
	FrameSeqs  []int64   `json:"frame_seqs"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	Orphaned   bool      `json:"orphaned"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionDetailResponse is a session with its submissions
type SessionDetailResponse struct {
	SessionResponse
	Submissions []SubmissionResponse `json:"submissions"`
}

func sessionToResponse(s database.SessionRecord) SessionResponse {
	return SessionResponse{
		ID:               s.ID,
		SubjectID:        s.SubjectID,
		Course:           s.Course,
		ClassYear:        s.ClassYear,
		Division:         s.Division,
		Date:             s.Date,
		TeacherID:        s.TeacherID,
		Device:           s.Device,
		StartedAt:        s.StartedAt,
		StoppedAt:        s.StoppedAt,
		DurationSeconds:  s.Duration().Seconds(),
		FramesCaptured:   s.FramesCaptured,
		FramesDropped:    s.FramesDropped,
		BatchesSubmitted: s.BatchesSubmitted,
		BatchesFailed:    s.BatchesFailed,
	}
}

// List returns the most recent sessions, at most ?limit=N
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	reader, err := h.reader()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	limit := database.DefaultSessionListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := reader.ListSessions(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	result := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		result[i] = sessionToResponse(s)
	}
	respondJSON(w, http.StatusOK, result)
}

// Get returns one session with its submissions
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	reader, err := h.reader()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	s, err := reader.GetSession(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	if s == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	subs, err := reader.ListSubmissions(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	detail := SessionDetailResponse{
		SessionResponse: sessionToResponse(*s),
		Submissions:     make([]SubmissionResponse, len(subs)),
	}
	for i, sub := range subs {
		detail.Submissions[i] = SubmissionResponse{
			Attempt:    sub.Attempt,
			FrameSeqs:  sub.FrameSeqs,
			Success:    sub.Success,
			Message:    sub.Message,
			Error:      sub.Error,
			Orphaned:   sub.Orphaned,
			DurationMS: sub.Duration.Milliseconds(),
			CreatedAt:  sub.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, detail)
}
