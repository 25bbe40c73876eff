package session

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kozaktomas/face-attendance/internal/batch"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// RetryOptions spaces out resubmissions of a batch that failed.
// A zero Initial retries on the very next frame.
type RetryOptions struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

func (o RetryOptions) newBackOff() backoff.BackOff {
	if o.Initial <= 0 {
		return &backoff.ZeroBackOff{}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.Initial
	if o.Max > 0 {
		b.MaxInterval = o.Max
	}
	if o.Multiplier > 0 {
		b.Multiplier = o.Multiplier
	}
	// A failing batch is retried for as long as the session runs.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Options tune a Controller.
type Options struct {
	Interval    time.Duration
	QueuePolicy batch.Policy
	QueueLimit  int
	Sampler     capture.SamplerOptions
	Retry       RetryOptions

	MarkAbsentTimeout time.Duration
	DeviceName        string            // recorded with the session history
	Recorder          database.Recorder // optional
}

// DefaultOptions returns the dashboard's capture cadence.
func DefaultOptions() Options {
	return Options{
		Interval:    constants.SampleInterval,
		QueuePolicy: batch.PolicyUnbounded,
		Sampler: capture.SamplerOptions{
			MaxFrameSize: constants.MaxFrameSize,
			JPEGQuality:  constants.JPEGQuality,
		},
		MarkAbsentTimeout: constants.MarkAbsentTimeout,
	}
}

// OptionsFromConfig builds controller options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := batch.ParsePolicy(cfg.Capture.QueuePolicy)
	if err != nil {
		return Options{}, fmt.Errorf("capture queue: %w", err)
	}

	opts := DefaultOptions()
	opts.Interval = cfg.Capture.Interval()
	opts.QueuePolicy = policy
	opts.QueueLimit = cfg.Capture.QueueLimit
	opts.Sampler.MaxFrameSize = cfg.Capture.MaxFrameSize
	opts.Sampler.JPEGQuality = cfg.Capture.JPEGQuality
	opts.Retry = RetryOptions{
		Initial:    time.Duration(cfg.Retry.InitialMS) * time.Millisecond,
		Max:        time.Duration(cfg.Retry.MaxMS) * time.Millisecond,
		Multiplier: cfg.Retry.Multiplier,
	}
	opts.DeviceName = cfg.Capture.Device
	return opts, nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Interval <= 0 {
		o.Interval = d.Interval
	}
	if o.QueuePolicy == "" {
		o.QueuePolicy = batch.PolicyUnbounded
	}
	return o
}
