package attendance_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/attendance/attendancetest"
	"github.com/kozaktomas/face-attendance/internal/batch"
	"github.com/kozaktomas/face-attendance/internal/capture"
)

func newClient(t *testing.T, url string) *attendance.Client {
	t.Helper()
	c, err := attendance.NewClient(url)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost", "://broken"} {
		if _, err := attendance.NewClient(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestSubmitFacialBatch(t *testing.T) {
	backend := attendancetest.New()
	defer backend.Close()
	c := newClient(t, backend.URL())

	b := batch.Batch{Context: batch.Context{SubjectID: "SUB1", Date: "2026-10-16", TeacherID: "T001"}}
	for i := range 7 {
		b.Frames = append(b.Frames, capture.Frame{Seq: uint64(i + 1), Data: []byte{0xff, 0xd8, byte(i)}})
	}

	resp, err := c.SubmitFacialBatch(context.Background(), b)
	if err != nil {
		t.Fatalf("SubmitFacialBatch failed: %v", err)
	}
	if !strings.Contains(resp.Message, "marked present") {
		t.Errorf("unexpected message '%s'", resp.Message)
	}
	if len(resp.Results) != 1 || resp.Results[0].StudentID != "S00001" {
		t.Errorf("unexpected results %+v", resp.Results)
	}

	got := backend.Batches()
	if len(got) != 1 {
		t.Fatalf("expected 1 batch at backend, got %d", len(got))
	}
	if len(got[0].Images) != 7 {
		t.Errorf("expected 7 images, got %d", len(got[0].Images))
	}
	if got[0].Images[0] != b.Frames[0].DataURL() {
		t.Errorf("expected first image to be the first frame")
	}
	if got[0].SubjectID != "SUB1" || got[0].TeacherID != "T001" || got[0].Date != "2026-10-16" {
		t.Errorf("unexpected context %+v", got[0])
	}
}

func TestSubmitFacialBatch_ErrorField(t *testing.T) {
	backend := attendancetest.New()
	defer backend.Close()
	backend.FailNextBatches(1)
	c := newClient(t, backend.URL())

	_, err := c.SubmitFacialBatch(context.Background(), batch.Batch{})
	var se *attendance.ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if se.Status != http.StatusOK {
		t.Errorf("expected error carried in a 200 response, got status %d", se.Status)
	}
	if se.Message != "recognition service unavailable" {
		t.Errorf("unexpected message '%s'", se.Message)
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := newClient(t, url)
	_, err := c.AttendanceStatus(context.Background(), "SUB1")
	if !attendance.IsTransportError(err) {
		t.Errorf("expected TransportError, got %v", err)
	}
	if attendance.IsServerError(err) {
		t.Error("transport failure must not be a ServerError")
	}
}

func TestNon2xxWithoutErrorField(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"message field", `{"message":"Attendance has already been marked for this subject today."}`, "already been marked"},
		{"plain text", `gateway exploded`, "gateway exploded"},
		{"empty", ``, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newClient(t, server.URL).MarkAbsent(context.Background(), batch.Context{SubjectID: "SUB1"})
			var se *attendance.ServerError
			if !errors.As(err, &se) {
				t.Fatalf("expected ServerError, got %v", err)
			}
			if !strings.Contains(se.Message, tt.wantMsg) {
				t.Errorf("expected message containing '%s', got '%s'", tt.wantMsg, se.Message)
			}
		})
	}
}

func TestUndecodableSuccessIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>proxy login</html>`))
	}))
	defer server.Close()

	_, err := newClient(t, server.URL).AttendanceStatus(context.Background(), "SUB1")
	if !attendance.IsTransportError(err) {
		t.Errorf("expected TransportError, got %v", err)
	}
}

func TestStatusAndEnable(t *testing.T) {
	backend := attendancetest.New()
	defer backend.Close()
	c := newClient(t, backend.URL())
	ctx := context.Background()

	status, err := c.AttendanceStatus(ctx, "SUB1")
	if err != nil {
		t.Fatalf("AttendanceStatus failed: %v", err)
	}
	if status.Enabled {
		t.Error("expected window closed initially")
	}

	msg, err := c.EnableAttendance(ctx, "SUB1", true)
	if err != nil {
		t.Fatalf("EnableAttendance failed: %v", err)
	}
	if msg.Message != "Attendance enabled for subject" {
		t.Errorf("unexpected message '%s'", msg.Message)
	}

	status, err = c.AttendanceStatus(ctx, "SUB1")
	if err != nil {
		t.Fatalf("AttendanceStatus failed: %v", err)
	}
	if !status.Enabled {
		t.Error("expected window open after enable")
	}

	if _, err := c.AttendanceStatus(ctx, "NOPE"); !attendance.IsServerError(err) {
		t.Errorf("expected ServerError for unknown subject, got %v", err)
	}
}

func TestMarkAbsentAndManualBatch(t *testing.T) {
	backend := attendancetest.New()
	defer backend.Close()
	c := newClient(t, backend.URL())
	ctx := context.Background()

	if _, err := c.MarkAbsent(ctx, batch.Context{SubjectID: "SUB1", Date: "2026-10-16", TeacherID: "T001"}); err != nil {
		t.Fatalf("MarkAbsent failed: %v", err)
	}
	calls := backend.MarkAbsentCalls()
	if len(calls) != 1 || calls[0]["subject_id"] != "SUB1" || calls[0]["teacher_id"] != "T001" {
		t.Errorf("unexpected mark-absent payloads %+v", calls)
	}

	_, err := c.MarkBatch(ctx, attendance.ManualBatch{
		SubjectID: "SUB1",
		Date:      "2026-10-16",
		MarkedBy:  "T001",
		Attendances: []attendance.StudentMark{
			{StudentID: "S00001", Status: "present"},
			{StudentID: "S00002", Status: "absent"},
		},
	})
	if err != nil {
		t.Fatalf("MarkBatch failed: %v", err)
	}
	manual := backend.ManualBatches()
	if len(manual) != 1 || len(manual[0].Attendances) != 2 || manual[0].MarkedBy != "T001" {
		t.Errorf("unexpected manual batches %+v", manual)
	}
}

func TestTeacherSubjects(t *testing.T) {
	backend := attendancetest.New()
	defer backend.Close()
	c := newClient(t, backend.URL())

	subjects, err := c.TeacherSubjects(context.Background(), "T001")
	if err != nil {
		t.Fatalf("TeacherSubjects failed: %v", err)
	}
	if len(subjects) != 2 {
		t.Fatalf("expected 2 subjects, got %d", len(subjects))
	}

	filtered := attendance.FilterSubjects(subjects, "BSC IT", "SY")
	if len(filtered) != 1 || filtered[0].SubjectID != "SUB2" {
		t.Errorf("unexpected filtered subjects %+v", filtered)
	}
	if all := attendance.FilterSubjects(subjects, "", ""); len(all) != 2 {
		t.Errorf("empty filters should keep all subjects, got %d", len(all))
	}

	if _, err := c.TeacherSubjects(context.Background(), ""); !attendance.IsServerError(err) {
		t.Errorf("expected ServerError for missing teacher id, got %v", err)
	}
}

func TestCaptureDir(t *testing.T) {
	backend := attendancetest.New()
	defer backend.Close()
	c := newClient(t, backend.URL())

	dir := t.TempDir()
	if err := c.SetCaptureDir(dir); err != nil {
		t.Fatalf("SetCaptureDir failed: %v", err)
	}
	if _, err := c.AttendanceStatus(context.Background(), "SUB1"); err != nil {
		t.Fatalf("AttendanceStatus failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "attendance_status_") {
		t.Errorf("expected one captured attendance_status file, got %v", entries)
	}
}
