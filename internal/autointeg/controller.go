package autointeg

import (
	"context"
	"fmt"
	"math"
	"time"

	"spectrostation"
	"spectrostation/internal/device"
	"spectrostation/internal/spectral"
)

// Direction is the sign of the last integration-time adjustment.
type Direction int

const (
	None Direction = iota
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "none"
	}
}

// Status is the session outcome. Everything except StatusRunning is terminal
// and waits for an explicit apply/discard; none of the bound/stall outcomes is
// a failure.
type Status int

const (
	StatusRunning Status = iota
	StatusOptimal
	StatusSaturatedAtMin
	StatusDimAtMax
	StatusStalled
	StatusMaxIterations
	StatusCaptureError
)

// Terminal reports whether the session has finished.
func (s Status) Terminal() bool { return s != StatusRunning }

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusOptimal:
		return "optimal found"
	case StatusSaturatedAtMin:
		return "saturated at minimum"
	case StatusDimAtMax:
		return "too dim at maximum"
	case StatusStalled:
		return "stalled"
	case StatusMaxIterations:
		return "max iterations reached"
	case StatusCaptureError:
		return "capture error"
	default:
		return "unknown"
	}
}

// ----------- Controller tuning -----------

// Config tunes the proportional search. The target band is expressed as
// fractions of the device's max ADC count.
type Config struct {
	TargetLowFrac  float64
	TargetHighFrac float64
	MaxIterations  int
	Gain           float64       // proportional gain on the ideal-time delta
	Damping        float64       // applied when the step direction flips
	MinAdjustment  time.Duration // smallest useful step once damped
}

// DefaultConfig returns the tuning used on the bench device.
func DefaultConfig() Config {
	return Config{
		TargetLowFrac:  0.60,
		TargetHighFrac: 0.85,
		MaxIterations:  30,
		Gain:           0.8,
		Damping:        0.5,
		MinAdjustment:  time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TargetLowFrac <= 0 || c.TargetHighFrac <= c.TargetLowFrac || c.TargetHighFrac > 1 {
		c.TargetLowFrac = def.TargetLowFrac
		c.TargetHighFrac = def.TargetHighFrac
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.Gain <= 0 {
		c.Gain = def.Gain
	}
	if c.Damping <= 0 || c.Damping >= 1 {
		c.Damping = def.Damping
	}
	if c.MinAdjustment <= 0 {
		c.MinAdjustment = def.MinAdjustment
	}
	return c
}

// Session is one auto-integration run: it converges the integration time onto
// a peak-intensity band via a damped proportional step, one Step per external
// tick. Not safe for concurrent use.
type Session struct {
	cfg    Config
	limits device.Limits

	targetLow  float64 // ADC counts
	targetHigh float64

	testTime   time.Duration
	iterations int
	lastPeak   float64
	prevDir    Direction
	status     Status

	pendingResult time.Duration
	lastSpectrum  *spectrostation.Spectrum
}

// NewSession starts a session testing from the given integration time,
// hardware-clamped.
func NewSession(cfg Config, limits device.Limits, start time.Duration) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:        cfg,
		limits:     limits,
		targetLow:  cfg.TargetLowFrac * limits.MaxADCCount,
		targetHigh: cfg.TargetHighFrac * limits.MaxADCCount,
		testTime:   limits.ClampIntegration(start),
		status:     StatusRunning,
	}
}

// Step performs one iteration: a single exposure, a band check, and at most
// one adjustment of the test time. A capture failure terminates the session
// with StatusCaptureError, keeping the last good spectrum as the pending
// candidate; there is no automatic retry.
func (s *Session) Step(ctx context.Context, dev device.Device) (Status, error) {
	if s.status.Terminal() {
		return s.status, nil
	}

	if s.iterations >= s.cfg.MaxIterations {
		s.status = StatusMaxIterations
		// testTime already holds the next, untried candidate; the pending
		// result must be an exposure the sensor actually measured.
		if s.lastSpectrum != nil {
			s.pendingResult = s.lastSpectrum.Integration
		} else {
			s.pendingResult = s.testTime
		}
		return s.status, nil
	}

	tested := s.limits.ClampIntegration(s.testTime)
	s.testTime = tested

	sp, err := dev.Capture(ctx, tested)
	if err != nil {
		s.status = StatusCaptureError
		if s.lastSpectrum != nil {
			s.pendingResult = s.lastSpectrum.Integration
		}
		return s.status, fmt.Errorf("auto-integration capture at %v: %w", tested, err)
	}

	sp = sp.WithKind(spectrostation.KindAutoIntegResult)
	s.lastSpectrum = &sp
	peak := spectral.Peak(sp)
	s.lastPeak = peak

	if peak >= s.targetLow && peak <= s.targetHigh {
		s.status = StatusOptimal
		s.pendingResult = tested
		return s.status, nil
	}
	if tested == s.limits.MinIntegration && peak > s.targetHigh {
		s.status = StatusSaturatedAtMin
		s.pendingResult = tested
		return s.status, nil
	}
	if tested == s.limits.MaxIntegration && peak < s.targetLow {
		s.status = StatusDimAtMax
		s.pendingResult = tested
		return s.status, nil
	}

	next, dir := nextAdjustment(tested, peak, s.prevDir, s.targetLow, s.targetHigh, s.cfg, s.limits)
	if next == tested {
		s.status = StatusStalled
		s.pendingResult = tested
		return s.status, nil
	}

	s.testTime = next
	s.prevDir = dir
	s.iterations++
	return s.status, nil
}

// nextAdjustment is the pure proportional step. Assumes the peak is outside
// the band. Damping halves a step that reverses direction, and the minimum
// step keeps the damped step from dying inside the actuator dead-zone.
func nextAdjustment(tested time.Duration, peak float64, prev Direction, low, high float64, cfg Config, limits device.Limits) (time.Duration, Direction) {
	mid := (low + high) / 2
	denom := peak
	if denom < 1 {
		denom = 1
	}
	ratio := mid / denom
	ideal := time.Duration(float64(tested) * ratio)
	change := float64(ideal-tested) * cfg.Gain

	dir := None
	if math.Abs(change) > float64(limits.Increment)/2 {
		if change > 0 {
			dir = Up
		} else {
			dir = Down
		}
	}

	if dir != None && prev != None && dir != prev {
		change *= cfg.Damping
	}

	if math.Abs(change) < float64(cfg.MinAdjustment) {
		// Push a full minimum step toward the side actually needed.
		if peak > high {
			change = -float64(cfg.MinAdjustment)
		} else {
			change = float64(cfg.MinAdjustment)
		}
	}

	next := limits.ClampIntegration(tested + time.Duration(change))
	next = limits.AlignIntegration(next)
	return next, dir
}

// ----------- Read-only accessors -----------

// Status returns the current session status.
func (s *Session) Status() Status { return s.status }

// Iterations returns how many adjustment steps have been taken.
func (s *Session) Iterations() int { return s.iterations }

// TestTime returns the integration time the next Step will try (or the last
// tested one after termination).
func (s *Session) TestTime() time.Duration { return s.testTime }

// LastPeak returns the peak intensity of the most recent exposure.
func (s *Session) LastPeak() float64 { return s.lastPeak }

// PendingResult returns the candidate integration time set at termination.
func (s *Session) PendingResult() time.Duration { return s.pendingResult }

// LastSpectrum returns the latest successfully measured spectrum, retained
// even when the session later aborts.
func (s *Session) LastSpectrum() (spectrostation.Spectrum, bool) {
	if s.lastSpectrum == nil {
		return spectrostation.Spectrum{}, false
	}
	return *s.lastSpectrum, true
}

// Info is a display-ready snapshot of the session.
type Info struct {
	Status        string        `json:"status"`
	Iteration     int           `json:"iteration"`
	TestTime      time.Duration `json:"test_time_ns"`
	LastPeak      float64       `json:"last_peak"`
	TargetLow     float64       `json:"target_low"`
	TargetHigh    float64       `json:"target_high"`
	PendingResult time.Duration `json:"pending_result_ns,omitempty"`
}

// Info snapshots the session for monitoring surfaces.
func (s *Session) Info() Info {
	return Info{
		Status:        s.status.String(),
		Iteration:     s.iterations,
		TestTime:      s.testTime,
		LastPeak:      s.lastPeak,
		TargetLow:     s.targetLow,
		TargetHigh:    s.targetHigh,
		PendingResult: s.pendingResult,
	}
}
