package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// loadConfig loads the configuration, applies the persistent flag overrides
// and validates the result.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	applyGlobalOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyGlobalOverrides(cfg *config.Config) {
	if globals.apiURL != "" {
		cfg.Backend.URL = globals.apiURL
	}
	if globals.teacherID != "" {
		cfg.Backend.TeacherID = globals.teacherID
	}
}

// newAttendanceClient connects to the attendance backend, saving responses
// to --capture when set.
func newAttendanceClient(cfg *config.Config) (*attendance.Client, error) {
	client, err := attendance.NewClient(cfg.Backend.URL)
	if err != nil {
		return nil, err
	}
	if globals.captureDir != "" {
		if err := client.SetCaptureDir(globals.captureDir); err != nil {
			return nil, fmt.Errorf("failed to set capture directory: %w", err)
		}
	}
	return client, nil
}

// requireTeacher returns the configured teacher identity.
func requireTeacher(cfg *config.Config) (string, error) {
	if cfg.Backend.TeacherID == "" {
		return "", errors.New("TEACHER_ID environment variable is required")
	}
	return cfg.Backend.TeacherID, nil
}

// initHistory connects to PostgreSQL when DATABASE_URL is set and returns the
// session recorder. Without a database sessions are not recorded.
func initHistory(cfg *config.Config) (database.Recorder, error) {
	if cfg.Database.URL == "" {
		return nil, nil
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	fmt.Printf("Session history enabled (PostgreSQL)\n")
	return database.GetRecorder()
}

// newController wires the capture device and backend into a session controller.
func newController(cfg *config.Config, client *attendance.Client, recorder database.Recorder) (*session.Controller, error) {
	teacherID, err := requireTeacher(cfg)
	if err != nil {
		return nil, err
	}

	opts, err := session.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts.Recorder = recorder

	device, err := capture.OpenDevice(cfg.Capture.Device)
	if err != nil {
		return nil, err
	}

	return session.NewController(session.Identity{TeacherID: teacherID}, client, device, opts), nil
}
