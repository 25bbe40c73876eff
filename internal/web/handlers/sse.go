package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/session"
)

// sendSSEEvent writes one server-sent event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, id, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	if id != "" {
		_, _ = io.WriteString(w, "id: "+id+"\n")
	}
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

// setupSSEConnection sets the SSE headers. On failure it writes an error
// response and returns false.
func setupSSEConnection(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}

// backlog returns the entries a reconnecting client missed, or the recent
// tail for a new client.
func backlog(l *session.Log, r *http.Request) []session.Entry {
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		if seq, err := strconv.ParseUint(last, 10, 64); err == nil {
			return l.Since(seq)
		}
	}
	return l.All()
}

// Events streams the session log and status as server-sent events until the
// client disconnects.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	l := h.controller.Log()
	eventCh := l.Subscribe()
	defer l.Unsubscribe(eventCh)

	sendSSEEvent(w, flusher, "", "status", h.controller.Status())
	var lastSeq uint64
	for _, e := range backlog(l, r) {
		sendSSEEvent(w, flusher, strconv.FormatUint(e.Seq, 10), "log", e)
		lastSeq = e.Seq
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-eventCh:
			if !ok {
				return
			}
			if e.Seq <= lastSeq {
				continue
			}
			lastSeq = e.Seq
			sendSSEEvent(w, flusher, strconv.FormatUint(e.Seq, 10), "log", e)
			sendSSEEvent(w, flusher, "", "status", h.controller.Status())
		}
	}
}
