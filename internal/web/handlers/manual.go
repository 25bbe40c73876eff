package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// ManualMarker submits manually reviewed attendance
type ManualMarker interface {
	MarkBatch(ctx context.Context, m attendance.ManualBatch) (*attendance.MessageResponse, error)
}

// ManualHandler handles manual attendance marking
type ManualHandler struct {
	marker    ManualMarker
	teacherID string
}

// NewManualHandler creates a new manual attendance handler
func NewManualHandler(marker ManualMarker, teacherID string) *ManualHandler {
	return &ManualHandler{marker: marker, teacherID: teacherID}
}

// ManualRequest is a reviewed attendance list. Date defaults to today and
// marked_by to the configured teacher.
type ManualRequest struct {
	SubjectID   string                   `json:"subject_id" validate:"required"`
	Date        string                   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	MarkedBy    string                   `json:"marked_by"`
	Attendances []attendance.StudentMark `json:"attendances" validate:"required,min=1,dive"`
}

// Mark submits the list to the backend
func (h *ManualHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req ManualRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	batch := attendance.ManualBatch{
		SubjectID:   req.SubjectID,
		Date:        req.Date,
		MarkedBy:    req.MarkedBy,
		Attendances: req.Attendances,
	}
	if batch.Date == "" {
		batch.Date = time.Now().Format(constants.DateLayout)
	}
	if batch.MarkedBy == "" {
		batch.MarkedBy = h.teacherID
	}

	resp, err := h.marker.MarkBatch(r.Context(), batch)
	if err != nil {
		respondBackendError(w, "Marking attendance", err)
		return
	}

	log.Printf("Marked %d students for subject %s on %s", len(batch.Attendances), sanitizeForLog(batch.SubjectID), batch.Date)
	respondJSON(w, http.StatusOK, resp)
}
