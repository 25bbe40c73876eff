package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Capture  CaptureConfig  `yaml:"capture"`
	Retry    RetryConfig    `yaml:"retry"`
	Database DatabaseConfig `yaml:"database"`
	Web      WebConfig      `yaml:"web"`
}

type BackendConfig struct {
	URL           string `yaml:"url"`            // attendance API base URL, without the /api suffix
	TeacherID     string `yaml:"teacher_id"`     // identity sent as teacher_id / marked_by
	DefaultCourse string `yaml:"default_course"` // preselected course filter
}

type CaptureConfig struct {
	Device       string `yaml:"device"` // device spec, e.g. dir:/path, cmd:fswebcam -, gocv:0
	IntervalMS   int    `yaml:"interval_ms"`
	MaxFrameSize int    `yaml:"max_frame_size"`
	JPEGQuality  int    `yaml:"jpeg_quality"`
	QueuePolicy  string `yaml:"queue_policy"` // unbounded, drop-oldest, drop-newest
	QueueLimit   int    `yaml:"queue_limit"`  // only used by the drop-* policies
}

// Interval returns the sampling interval as a duration.
func (c CaptureConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

type RetryConfig struct {
	InitialMS  int     `yaml:"initial_ms"` // 0 disables backoff: retry on every readiness check
	MaxMS      int     `yaml:"max_ms"`
	Multiplier float64 `yaml:"multiplier"`
}

type DatabaseConfig struct {
	URL          string `yaml:"-"`              // PostgreSQL connection URL, optional
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // CORS whitelist, localhost is always allowed
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envString returns the env var value, or defaultVal when unset or empty.
func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envList splits a comma-separated env var, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load reads the embedded defaults and applies environment overrides.
func Load() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	cfg.Backend.URL = envString("ATTENDANCE_API_URL", cfg.Backend.URL)
	cfg.Backend.TeacherID = envString("TEACHER_ID", cfg.Backend.TeacherID)
	cfg.Backend.DefaultCourse = envString("DEFAULT_COURSE", cfg.Backend.DefaultCourse)

	cfg.Capture.Device = envString("CAPTURE_DEVICE", cfg.Capture.Device)
	cfg.Capture.IntervalMS = envInt("CAPTURE_INTERVAL_MS", cfg.Capture.IntervalMS)
	cfg.Capture.MaxFrameSize = envInt("CAPTURE_MAX_FRAME_SIZE", cfg.Capture.MaxFrameSize)
	cfg.Capture.JPEGQuality = envInt("CAPTURE_JPEG_QUALITY", cfg.Capture.JPEGQuality)
	cfg.Capture.QueuePolicy = envString("CAPTURE_QUEUE_POLICY", cfg.Capture.QueuePolicy)
	cfg.Capture.QueueLimit = envInt("CAPTURE_QUEUE_LIMIT", cfg.Capture.QueueLimit)

	cfg.Retry.InitialMS = envInt("RETRY_INITIAL_MS", cfg.Retry.InitialMS)
	cfg.Retry.MaxMS = envInt("RETRY_MAX_MS", cfg.Retry.MaxMS)

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	cfg.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Web.Host = envString("WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	if origins := envList("WEB_ALLOWED_ORIGINS"); len(origins) > 0 {
		cfg.Web.AllowedOrigins = origins
	}

	return &cfg
}

// Validate reports configuration values the capture pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Backend.URL == "" {
		errs = append(errs, errors.New("ATTENDANCE_API_URL must not be empty"))
	}
	if c.Capture.IntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("capture interval must be positive, got %d ms", c.Capture.IntervalMS))
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality must be within 1..100, got %d", c.Capture.JPEGQuality))
	}
	switch c.Capture.QueuePolicy {
	case "unbounded", "":
	case "drop-oldest", "drop-newest":
		if c.Capture.QueueLimit < constants.BatchSize {
			errs = append(errs, fmt.Errorf("queue limit %d is smaller than the batch size %d",
				c.Capture.QueueLimit, constants.BatchSize))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue policy %q", c.Capture.QueuePolicy))
	}
	return errors.Join(errs...)
}
