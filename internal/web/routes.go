package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

// requestTimeout bounds the plain request/response routes
const requestTimeout = 2 * time.Minute

func (s *Server) setupRoutes() {
	teacherID := s.config.Backend.TeacherID

	configHandler := handlers.NewConfigHandler(s.config)
	sessionHandler := handlers.NewSessionHandler(s.deps.Controller)
	gateHandler := handlers.NewGateHandler(s.deps.Panel)
	subjectsHandler := handlers.NewSubjectsHandler(s.deps.Attendance, teacherID)
	manualHandler := handlers.NewManualHandler(s.deps.Attendance, teacherID)
	historyHandler := handlers.NewHistoryHandler()

	s.router.Route("/api/v1", func(r chi.Router) {
		// Streams stay open for the session lifetime
		r.Get("/session/events", sessionHandler.Events)
		r.Get("/session/ws", sessionHandler.WebSocket(s.origins.CheckOrigin))

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			r.Get("/health", handlers.HealthCheck)
			r.Get("/config", configHandler.Get)

			// Capture session
			r.Get("/session", sessionHandler.Status)
			r.Post("/session/start", sessionHandler.Start)
			r.Post("/session/stop", sessionHandler.Stop)
			r.Get("/session/logs", sessionHandler.Logs)

			// Attendance window
			r.Get("/gate/{subjectId}", gateHandler.Check)
			r.Put("/gate/{subjectId}", gateHandler.Set)
			r.Post("/gate/{subjectId}/toggle", gateHandler.Toggle)

			r.Get("/subjects", subjectsHandler.List)
			r.Post("/attendance/manual", manualHandler.Mark)

			// History (requires DATABASE_URL)
			r.Get("/sessions", historyHandler.List)
			r.Get("/sessions/{id}", historyHandler.Get)
		})
	})
}
