package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse is what the dashboard needs to render the capture screen
type ConfigResponse struct {
	TeacherID      string   `json:"teacher_id"`
	DefaultCourse  string   `json:"default_course"`
	Device         string   `json:"device"`
	Drivers        []string `json:"drivers"`
	IntervalMS     int      `json:"interval_ms"`
	BatchSize      int      `json:"batch_size"`
	QueuePolicy    string   `json:"queue_policy"`
	RecentLogCount int      `json:"recent_log_count"`
	HistoryEnabled bool     `json:"history_enabled"`
}

// Get returns the capture configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		TeacherID:      h.config.Backend.TeacherID,
		DefaultCourse:  h.config.Backend.DefaultCourse,
		Device:         h.config.Capture.Device,
		Drivers:        capture.Drivers(),
		IntervalMS:     h.config.Capture.IntervalMS,
		BatchSize:      constants.BatchSize,
		QueuePolicy:    h.config.Capture.QueuePolicy,
		RecentLogCount: constants.RecentLogCount,
		HistoryEnabled: database.IsInitialized(),
	})
}
