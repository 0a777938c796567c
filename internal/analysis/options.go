package analysis

import (
	"fmt"
	"math"
)

const (
	DefaultSegments          = 4
	DefaultBrakeThreshold    = 0.15
	DefaultThrottleThreshold = 0.25

	// Losses at or below lossEpsilon are measurement noise and clamp to 0
	lossEpsilon = 1e-9
	// A top cause must exceed causeEpsilon to be reported
	causeEpsilon = 1e-6
)

// Top cause labels
const (
	CauseBraking      = "braking"
	CauseCornerExit   = "corner_exit"
	CauseLateThrottle = "corner_exit (late throttle)"
	CauseNone         = "n/a"
)

// ConfigError is returned for invalid analysis parameters
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Options controls one analysis invocation
type Options struct {
	Segments          int      // number of equal-width track segments
	MaxDT             *float64 // optional upper bound on sample deltas (seconds)
	BrakeThreshold    float64  // brake >= threshold counts as braking
	ThrottleThreshold float64  // throttle >= threshold counts as on-throttle
}

// DefaultOptions returns the standard analysis parameters
func DefaultOptions() Options {
	return Options{
		Segments:          DefaultSegments,
		BrakeThreshold:    DefaultBrakeThreshold,
		ThrottleThreshold: DefaultThrottleThreshold,
	}
}

// Validate rejects parameters the pipeline cannot run with.
// Thresholds outside [0,1] are allowed; they only change classification.
func (o Options) Validate() error {
	if o.Segments <= 0 {
		return &ConfigError{Field: "segments", Reason: fmt.Sprintf("must be a positive integer, got %d", o.Segments)}
	}
	if o.MaxDT != nil && math.IsNaN(*o.MaxDT) {
		return &ConfigError{Field: "max_dt", Reason: "must be a number"}
	}
	if math.IsNaN(o.BrakeThreshold) {
		return &ConfigError{Field: "brake_threshold", Reason: "must be a number"}
	}
	if math.IsNaN(o.ThrottleThreshold) {
		return &ConfigError{Field: "throttle_threshold", Reason: "must be a number"}
	}
	return nil
}

// Thresholds returns the driver-input classification thresholds
func (o Options) Thresholds() Thresholds {
	return Thresholds{Brake: o.BrakeThreshold, Throttle: o.ThrottleThreshold}
}
