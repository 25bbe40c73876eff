package attendance

// envelope holds the fields every backend response may carry.
type envelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse is the generic {message} reply.
type MessageResponse struct {
	Message string `json:"message"`
}

// FacialBatchRequest is the body of /api/attendance/batch_facial.
type FacialBatchRequest struct {
	Images    []string `json:"images"` // base64 JPEG data URLs
	SubjectID string   `json:"subject_id"`
	Date      string   `json:"date"`
	TeacherID string   `json:"teacher_id"`
}

// RecognizedStudent is one student the backend matched in a batch.
type RecognizedStudent struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
}

// FacialBatchResponse is the reply to a facial batch submission.
type FacialBatchResponse struct {
	Message string              `json:"message"`
	Results []RecognizedStudent `json:"results"`
}

// StudentMark is one row of a manually reviewed attendance list.
type StudentMark struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=present absent"`
}

// ManualBatch is the body of /api/attendance/mark_batch.
type ManualBatch struct {
	SubjectID   string        `json:"subject_id" validate:"required"`
	Date        string        `json:"date" validate:"required,datetime=2006-01-02"`
	MarkedBy    string        `json:"marked_by" validate:"required"`
	Attendances []StudentMark `json:"attendances" validate:"required,min=1,dive"`
}

// StatusResponse is the attendance window flag of a subject.
type StatusResponse struct {
	Enabled bool `json:"enabled"`
}

// EnableRequest toggles the attendance window of a subject.
type EnableRequest struct {
	SubjectID string `json:"subject_id"`
	Enabled   bool   `json:"enabled"`
}

// Subject is a subject taught by a teacher.
type Subject struct {
	SubjectID         string `json:"subject_id"`
	Name              string `json:"name"`
	Course            string `json:"course"`
	ClassYear         string `json:"class_year"`
	TeacherID         string `json:"teacher_id"`
	AttendanceEnabled bool   `json:"attendance_enabled"`
}

// SubjectsResponse wraps the teacher subject list.
type SubjectsResponse struct {
	Subjects []Subject `json:"subjects"`
}

// FilterSubjects keeps subjects matching course and class year; empty filters match all.
func FilterSubjects(subjects []Subject, course, classYear string) []Subject {
	var out []Subject
	for _, s := range subjects {
		if course != "" && s.Course != course {
			continue
		}
		if classYear != "" && s.ClassYear != classYear {
			continue
		}
		out = append(out, s)
	}
	return out
}
