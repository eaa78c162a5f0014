package device

import (
	"context"
	"errors"
	"time"

	"spectrostation"
)

// Domain errors a capture can report. Callers match with errors.Is.
var (
	// ErrNotReady means the sensor is present but cannot expose right now.
	// Capture-triggering user actions treat this as a no-op, not a failure.
	ErrNotReady = errors.New("device not ready")
	// ErrTimeout means an exposure did not complete in time.
	ErrTimeout = errors.New("capture timed out")
	// ErrFault means the hardware reported an unrecoverable condition.
	ErrFault = errors.New("device fault")
)

// Limits is the hardware capability descriptor, resolved once at startup and
// injected into every collaborator that needs it.
type Limits struct {
	MinIntegration time.Duration `json:"min_integration_ns"`
	MaxIntegration time.Duration `json:"max_integration_ns"`
	Increment      time.Duration `json:"increment_ns"`
	MaxADCCount    float64       `json:"max_adc_count"`
}

// ClampIntegration bounds t to the hardware window.
func (l Limits) ClampIntegration(t time.Duration) time.Duration {
	if t < l.MinIntegration {
		return l.MinIntegration
	}
	if t > l.MaxIntegration {
		return l.MaxIntegration
	}
	return t
}

// AlignIntegration rounds t to the nearest actuator increment, then clamps.
// A non-positive increment leaves t untouched apart from clamping.
func (l Limits) AlignIntegration(t time.Duration) time.Duration {
	if l.Increment > 0 {
		t = ((t + l.Increment/2) / l.Increment) * l.Increment
	}
	return l.ClampIntegration(t)
}

// Device is the consumed spectrometer capability. Capture performs exactly one
// hardware exposure and blocks for roughly the integration time; the caller
// owns pacing between captures.
type Device interface {
	Capture(ctx context.Context, integration time.Duration) (spectrostation.Spectrum, error)
	Limits() Limits
}
