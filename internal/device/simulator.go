package device

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"spectrostation"
)

// ----------- Simulation defaults -----------
//
// The defaults model a small VIS sensor: 288 channels over 340–850 nm,
// 14-bit ADC, and the integration window of a typical micro-spectrometer.
const (
	DefaultChannels        = 288
	DefaultStartWavelength = 340.0 // nm
	DefaultEndWavelength   = 850.0 // nm
	DefaultPeakWavelength  = 550.0 // nm
	DefaultPeakWidth       = 80.0  // nm, gaussian sigma
	DefaultResponsivity    = 24000.0 // peak counts per second of exposure
	DefaultDarkLevel       = 180.0   // counts of fixed sensor offset
	DefaultMaxADCCount     = 16383.0 // 14-bit

	DefaultMinIntegration = 3800 * time.Microsecond
	DefaultMaxIntegration = 6 * time.Second
	DefaultIncrement      = 100 * time.Microsecond
)

// SimulatorConfig tunes the software spectrometer.
type SimulatorConfig struct {
	Limits          Limits
	Channels        int
	StartWavelength float64
	EndWavelength   float64
	PeakWavelength  float64
	PeakWidth       float64
	Responsivity    float64 // peak counts per second of exposure
	DarkLevel       float64
	NoiseAmplitude  float64 // 0 disables noise (deterministic output)
	Seed            int64
}

// DefaultSimulatorConfig returns a noise-free simulator setup.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Limits: Limits{
			MinIntegration: DefaultMinIntegration,
			MaxIntegration: DefaultMaxIntegration,
			Increment:      DefaultIncrement,
			MaxADCCount:    DefaultMaxADCCount,
		},
		Channels:        DefaultChannels,
		StartWavelength: DefaultStartWavelength,
		EndWavelength:   DefaultEndWavelength,
		PeakWavelength:  DefaultPeakWavelength,
		PeakWidth:       DefaultPeakWidth,
		Responsivity:    DefaultResponsivity,
		DarkLevel:       DefaultDarkLevel,
	}
}

// Simulator is a software spectrometer whose peak signal scales linearly with
// integration time until the ADC clips. It never sleeps for the exposure; the
// tick runner owns pacing.
type Simulator struct {
	cfg         SimulatorConfig
	wavelengths []float64
	shape       []float64 // relative response per channel, peak channel = 1

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator builds a simulator, filling zero config fields with defaults.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	def := DefaultSimulatorConfig()
	if cfg.Channels <= 0 {
		cfg.Channels = def.Channels
	}
	if cfg.StartWavelength <= 0 || cfg.EndWavelength <= cfg.StartWavelength {
		cfg.StartWavelength = def.StartWavelength
		cfg.EndWavelength = def.EndWavelength
	}
	if cfg.PeakWavelength <= 0 {
		cfg.PeakWavelength = def.PeakWavelength
	}
	if cfg.PeakWidth <= 0 {
		cfg.PeakWidth = def.PeakWidth
	}
	if cfg.Responsivity <= 0 {
		cfg.Responsivity = def.Responsivity
	}
	if cfg.DarkLevel < 0 {
		cfg.DarkLevel = def.DarkLevel
	}
	if cfg.Limits.MinIntegration <= 0 {
		cfg.Limits.MinIntegration = def.Limits.MinIntegration
	}
	if cfg.Limits.MaxIntegration <= cfg.Limits.MinIntegration {
		cfg.Limits.MaxIntegration = def.Limits.MaxIntegration
	}
	if cfg.Limits.Increment <= 0 {
		cfg.Limits.Increment = def.Limits.Increment
	}
	if cfg.Limits.MaxADCCount <= 0 {
		cfg.Limits.MaxADCCount = def.Limits.MaxADCCount
	}

	s := &Simulator{
		cfg:         cfg,
		wavelengths: make([]float64, cfg.Channels),
		shape:       make([]float64, cfg.Channels),
		rng:         rand.New(rand.NewSource(cfg.Seed)),
	}

	step := (cfg.EndWavelength - cfg.StartWavelength) / float64(cfg.Channels-1)
	for i := range s.wavelengths {
		wl := cfg.StartWavelength + step*float64(i)
		s.wavelengths[i] = wl
		d := wl - cfg.PeakWavelength
		s.shape[i] = math.Exp(-(d * d) / (2 * cfg.PeakWidth * cfg.PeakWidth))
	}
	return s
}

// Limits reports the simulated hardware window.
func (s *Simulator) Limits() Limits { return s.cfg.Limits }

// Capture performs one simulated exposure. Out-of-window integration times are
// clamped the way the real sensor clamps its shift-register clock.
func (s *Simulator) Capture(ctx context.Context, integration time.Duration) (spectrostation.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return spectrostation.Spectrum{}, err
	}
	if integration <= 0 {
		return spectrostation.Spectrum{}, ErrFault
	}
	integration = s.cfg.Limits.ClampIntegration(integration)

	seconds := integration.Seconds()
	intensities := make([]float64, len(s.shape))

	s.mu.Lock()
	for i, rel := range s.shape {
		v := s.cfg.DarkLevel + s.cfg.Responsivity*seconds*rel
		if s.cfg.NoiseAmplitude > 0 {
			v += (s.rng.Float64()*2 - 1) * s.cfg.NoiseAmplitude
		}
		if v < 0 {
			v = 0
		}
		if v > s.cfg.Limits.MaxADCCount {
			v = s.cfg.Limits.MaxADCCount
		}
		intensities[i] = v
	}
	s.mu.Unlock()

	return spectrostation.NewSpectrum(
		uuid.NewString(),
		time.Now().UTC(),
		spectrostation.KindSample,
		integration,
		s.wavelengths,
		intensities,
	), nil
}
