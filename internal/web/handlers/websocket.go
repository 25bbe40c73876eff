package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// wsMessage is one frame pushed to websocket clients.
type wsMessage struct {
	Type   string          `json:"type"` // "status" or "log"
	Entry  *session.Entry  `json:"entry,omitempty"`
	Status *session.Status `json:"status,omitempty"`
}

// WebSocket pushes the same stream as Events over a websocket, for clients
// that cannot use EventSource.
func (h *SessionHandler) WebSocket(checkOrigin func(r *http.Request) bool) http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			log.Printf("Failed to upgrade to WebSocket: %v", err)
			return
		}
		defer conn.Close()

		l := h.controller.Log()
		eventCh := l.Subscribe()
		defer l.Unsubscribe(eventCh)

		// Reads only to notice the client going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func(m wsMessage) bool {
			conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := conn.WriteJSON(m); err != nil {
				log.Printf("WebSocket client disconnected: %v", err)
				return false
			}
			return true
		}

		if !send(wsMessage{Type: "status", Status: h.controller.Status()}) {
			return
		}
		var lastSeq uint64
		for _, e := range l.Recent(constants.RecentLogCount) {
			if !send(wsMessage{Type: "log", Entry: &e}) {
				return
			}
			lastSeq = e.Seq
		}

		for {
			select {
			case <-closed:
				return
			case e, ok := <-eventCh:
				if !ok {
					return
				}
				if e.Seq <= lastSeq {
					continue
				}
				lastSeq = e.Seq
				if !send(wsMessage{Type: "log", Entry: &e}) {
					return
				}
				if !send(wsMessage{Type: "status", Status: h.controller.Status()}) {
					return
				}
			}
		}
	}
}
