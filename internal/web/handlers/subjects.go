package handlers

import (
	"context"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// SubjectSource lists the subjects a teacher teaches
type SubjectSource interface {
	TeacherSubjects(ctx context.Context, teacherID string) ([]attendance.Subject, error)
}

// SubjectsHandler handles subject listing for the capture filters
type SubjectsHandler struct {
	source    SubjectSource
	teacherID string
}

// NewSubjectsHandler creates a new subjects handler
func NewSubjectsHandler(source SubjectSource, teacherID string) *SubjectsHandler {
	return &SubjectsHandler{source: source, teacherID: teacherID}
}

// List returns the teacher's subjects, filtered by ?course= and ?class_year=
func (h *SubjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.source.TeacherSubjects(r.Context(), h.teacherID)
	if err != nil {
		respondBackendError(w, "Listing subjects", err)
		return
	}

	query := r.URL.Query()
	filtered := attendance.FilterSubjects(subjects, query.Get("course"), query.Get("class_year"))
	if filtered == nil {
		filtered = []attendance.Subject{}
	}
	respondJSON(w, http.StatusOK, filtered)
}
