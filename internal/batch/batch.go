// Package batch groups captured frames into fixed-size batches and limits
// batch submission to one in flight at a time.
package batch

import "github.com/kozaktomas/face-attendance/internal/capture"

// Context identifies what a batch is submitted for.
type Context struct {
	SubjectID string `json:"subject_id"`
	Date      string `json:"date"`
	TeacherID string `json:"teacher_id"`
}

// Batch is an ordered group of frames submitted together, all or nothing.
type Batch struct {
	Frames  []capture.Frame
	Context Context
}

// Seqs returns the capture sequence numbers of the batch's frames.
func (b Batch) Seqs() []uint64 {
	seqs := make([]uint64, len(b.Frames))
	for i, f := range b.Frames {
		seqs[i] = f.Seq
	}
	return seqs
}

// Outcome is what a settled submission reports back.
type Outcome struct {
	Message  string
	Consumed int // leading frames to drain on success
}
