// Package attendancetest provides an in-memory attendance backend for tests.
package attendancetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// Backend is a fake attendance API with the same request and response shapes
// as the real one.
type Backend struct {
	Server *httptest.Server

	mu             sync.Mutex
	subjects       map[string]*attendance.Subject
	batches        []attendance.FacialBatchRequest
	manual         []attendance.ManualBatch
	markAbsent     []map[string]string
	failBatches    int
	markAbsentFail bool
	hold           chan struct{}
	entered        chan struct{}
}

// New starts a fake backend. Subject "SUB1" exists with the window closed.
func New() *Backend {
	b := &Backend{
		subjects: map[string]*attendance.Subject{
			"SUB1": {SubjectID: "SUB1", Name: "Networks", Course: "BSC IT", ClassYear: "FY", TeacherID: "T001"},
			"SUB2": {SubjectID: "SUB2", Name: "Databases", Course: "BSC IT", ClassYear: "SY", TeacherID: "T001"},
			"SUB3": {SubjectID: "SUB3", Name: "Optics", Course: "BSC PHY", ClassYear: "FY", TeacherID: "T002"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/mark_absent", b.handleMarkAbsent)
	mux.HandleFunc("POST /api/attendance/batch_facial", b.handleBatchFacial)
	mux.HandleFunc("POST /api/attendance/mark_batch", b.handleMarkBatch)
	mux.HandleFunc("GET /api/attendance/status", b.handleStatus)
	mux.HandleFunc("POST /api/attendance/enable", b.handleEnable)
	mux.HandleFunc("GET /api/teachers/subjects", b.handleTeacherSubjects)

	b.Server = httptest.NewServer(mux)
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string { return b.Server.URL }

// Close shuts the server down, releasing any held submission first.
func (b *Backend) Close() {
	b.Release()
	b.Server.Close()
}

// FailNextBatches makes the next n batch submissions answer with an error field.
func (b *Backend) FailNextBatches(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failBatches = n
}

// FailMarkAbsent makes mark-absent answer with an error field.
func (b *Backend) FailMarkAbsent() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markAbsentFail = true
}

// Hold blocks batch submissions until Release. The returned channel receives
// once per submission that starts waiting.
func (b *Backend) Hold() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hold = make(chan struct{})
	b.entered = make(chan struct{}, 16)
	return b.entered
}

// Release unblocks held submissions.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hold != nil {
		close(b.hold)
		b.hold = nil
	}
}

// Batches returns the accepted facial batch requests, in arrival order.
func (b *Backend) Batches() []attendance.FacialBatchRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]attendance.FacialBatchRequest(nil), b.batches...)
}

// ManualBatches returns the received manual batches.
func (b *Backend) ManualBatches() []attendance.ManualBatch {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]attendance.ManualBatch(nil), b.manual...)
}

// MarkAbsentCalls returns the received mark-absent payloads.
func (b *Backend) MarkAbsentCalls() []map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]string(nil), b.markAbsent...)
}

// Enabled returns the attendance window flag of a subject.
func (b *Backend) Enabled(subjectID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subjects[subjectID]; ok {
		return s.AttendanceEnabled
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (b *Backend) handleMarkAbsent(w http.ResponseWriter, r *http.Request) {
	var payload map[string]string
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	b.mu.Lock()
	b.markAbsent = append(b.markAbsent, payload)
	fail := b.markAbsentFail
	b.mu.Unlock()

	if fail {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid subject_id"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "All 3 students marked absent."})
}

func (b *Backend) handleBatchFacial(w http.ResponseWriter, r *http.Request) {
	var req attendance.FacialBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	b.mu.Lock()
	hold, entered := b.hold, b.entered
	b.mu.Unlock()
	if hold != nil {
		entered <- struct{}{}
		<-hold
	}

	b.mu.Lock()
	if b.failBatches > 0 {
		b.failBatches--
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"error": "recognition service unavailable"})
		return
	}
	b.batches = append(b.batches, req)
	n := len(b.batches)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, attendance.FacialBatchResponse{
		Message: fmt.Sprintf("batch %d: +1 students marked present", n),
		Results: []attendance.RecognizedStudent{{StudentID: "S00001", Name: "Asha", Status: "present"}},
	})
}

func (b *Backend) handleMarkBatch(w http.ResponseWriter, r *http.Request) {
	var req attendance.ManualBatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	b.mu.Lock()
	b.manual = append(b.manual, req)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Batch attendance marked successfully"})
}

func (b *Backend) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("subject_id")
	b.mu.Lock()
	s, ok := b.subjects[id]
	var enabled bool
	if ok {
		enabled = s.AttendanceEnabled
	}
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Subject not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

func (b *Backend) handleEnable(w http.ResponseWriter, r *http.Request) {
	var req attendance.EnableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	b.mu.Lock()
	s, ok := b.subjects[req.SubjectID]
	if ok {
		s.AttendanceEnabled = req.Enabled
	}
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Subject not found"})
		return
	}
	state := "disabled"
	if req.Enabled {
		state = "enabled"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Attendance " + state + " for subject"})
}

func (b *Backend) handleTeacherSubjects(w http.ResponseWriter, r *http.Request) {
	teacherID := r.URL.Query().Get("teacherId")
	if teacherID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Teacher ID is required"})
		return
	}

	b.mu.Lock()
	var out []attendance.Subject
	for _, id := range []string{"SUB1", "SUB2", "SUB3"} {
		if s := b.subjects[id]; s.TeacherID == teacherID {
			out = append(out, *s)
		}
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, attendance.SubjectsResponse{Subjects: out})
}
