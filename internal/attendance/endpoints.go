package attendance

import (
	"context"
	"net/url"

	"github.com/kozaktomas/face-attendance/internal/batch"
)

// MarkAbsent marks every enrolled student absent for the subject and date.
func (c *Client) MarkAbsent(ctx context.Context, bc batch.Context) (*MessageResponse, error) {
	return doPostJSON[MessageResponse](ctx, c, "mark_absent", bc)
}

// SubmitFacialBatch sends all frames of a batch in one request.
func (c *Client) SubmitFacialBatch(ctx context.Context, b batch.Batch) (*FacialBatchResponse, error) {
	images := make([]string, len(b.Frames))
	for i, f := range b.Frames {
		images[i] = f.DataURL()
	}
	return doPostJSON[FacialBatchResponse](ctx, c, "attendance/batch_facial", FacialBatchRequest{
		Images:    images,
		SubjectID: b.Context.SubjectID,
		Date:      b.Context.Date,
		TeacherID: b.Context.TeacherID,
	})
}

// MarkBatch submits a manually reviewed present/absent list.
func (c *Client) MarkBatch(ctx context.Context, m ManualBatch) (*MessageResponse, error) {
	return doPostJSON[MessageResponse](ctx, c, "attendance/mark_batch", m)
}

// AttendanceStatus queries the attendance window flag of a subject.
func (c *Client) AttendanceStatus(ctx context.Context, subjectID string) (*StatusResponse, error) {
	return doGetJSON[StatusResponse](ctx, c, "attendance/status?subject_id="+url.QueryEscape(subjectID))
}

// EnableAttendance opens or closes the attendance window of a subject.
func (c *Client) EnableAttendance(ctx context.Context, subjectID string, enabled bool) (*MessageResponse, error) {
	return doPostJSON[MessageResponse](ctx, c, "attendance/enable", EnableRequest{SubjectID: subjectID, Enabled: enabled})
}

// TeacherSubjects lists the subjects assigned to a teacher.
func (c *Client) TeacherSubjects(ctx context.Context, teacherID string) ([]Subject, error) {
	result, err := doGetJSON[SubjectsResponse](ctx, c, "teachers/subjects?teacherId="+url.QueryEscape(teacherID))
	if err != nil {
		return nil, err
	}
	return result.Subjects, nil
}
