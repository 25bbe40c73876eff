// Package capture owns the camera side of a live attendance session: opening
// devices, grabbing still frames and sampling them on a fixed cadence.
package capture

import (
	"encoding/base64"
	"time"
)

// Frame is one encoded still image captured from the live video source.
// Frames are immutable once created.
type Frame struct {
	Seq        uint64    // capture order within a sampler run, starting at 1
	Data       []byte    // JPEG bytes
	CapturedAt time.Time
}

// DataURL renders the frame the way the browser canvas does
// (data:image/jpeg;base64,...). The backend strips the prefix.
func (f Frame) DataURL() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(f.Data)
}
