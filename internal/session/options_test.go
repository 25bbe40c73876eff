package session

import (
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/batch"
	"github.com/kozaktomas/face-attendance/internal/config"
)

func TestRetryOptions_NewBackOff(t *testing.T) {
	zero := RetryOptions{}.newBackOff()
	for range 3 {
		if d := zero.NextBackOff(); d != 0 {
			t.Fatalf("expected immediate retries, got %v", d)
		}
	}

	exp := RetryOptions{Initial: time.Second, Max: 4 * time.Second, Multiplier: 2}.newBackOff()
	first := exp.NextBackOff()
	if first < 500*time.Millisecond || first > 1500*time.Millisecond {
		t.Errorf("first delay %v outside the jitter range of 1s", first)
	}
	var last time.Duration
	for range 10 {
		last = exp.NextBackOff()
	}
	if last > 6*time.Second {
		t.Errorf("delay %v exceeds the jittered maximum", last)
	}

	exp.Reset()
	if d := exp.NextBackOff(); d > 1500*time.Millisecond {
		t.Errorf("expected reset to restart from the initial delay, got %v", d)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Load()
	cfg.Capture.QueuePolicy = "drop-oldest"
	cfg.Capture.QueueLimit = 70
	cfg.Retry.InitialMS = 0

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig failed: %v", err)
	}
	if opts.Interval != 1500*time.Millisecond {
		t.Errorf("unexpected cadence %v", opts.Interval)
	}
	if opts.QueuePolicy != batch.PolicyDropOldest || opts.QueueLimit != 70 {
		t.Errorf("unexpected queue options %s / %d", opts.QueuePolicy, opts.QueueLimit)
	}
	if opts.Retry.Initial != 0 {
		t.Errorf("expected backoff disabled, got %v", opts.Retry.Initial)
	}

	cfg.Capture.QueuePolicy = "drop-everything"
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("expected error for unknown queue policy")
	}
}

func TestParamsValidate(t *testing.T) {
	p := validParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid params, got %v", err)
	}

	err := Params{Course: "BSC IT"}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Error() != "invalid session parameters: subject_id, class_year" {
		t.Errorf("unexpected message %q", verr.Error())
	}
}
