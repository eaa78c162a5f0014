package spectrostation

import "time"

// CaptureKind tells what a captured spectrum is for.
type CaptureKind string

const (
	KindSample          CaptureKind = "SAMPLE"
	KindDark            CaptureKind = "DARK"
	KindWhite           CaptureKind = "WHITE"
	KindAutoIntegResult CaptureKind = "AUTOINTEG_RESULT"
)

// CollectionMode selects what a Sample capture records.
type CollectionMode string

const (
	ModeRaw         CollectionMode = "RAW"
	ModeReflectance CollectionMode = "REFLECTANCE"
)

// Spectrum is one captured spectrum plus its metadata. Intensities[i] belongs
// to Wavelengths[i]; the two slices always have equal length and wavelengths
// are strictly increasing. A Spectrum is never mutated after NewSpectrum.
type Spectrum struct {
	ID          string         `json:"id"`
	CapturedAt  time.Time      `json:"captured_at"`
	Kind        CaptureKind    `json:"kind"`
	Mode        CollectionMode `json:"mode,omitempty"` // SAMPLE captures only
	Integration time.Duration  `json:"integration_ns"`
	Wavelengths []float64      `json:"wavelengths"`
	Intensities []float64      `json:"intensities"`
}

// NewSpectrum builds an immutable Spectrum, copying both vectors so later
// writes to the caller's slices cannot leak in.
func NewSpectrum(id string, at time.Time, kind CaptureKind, integration time.Duration, wavelengths, intensities []float64) Spectrum {
	w := make([]float64, len(wavelengths))
	copy(w, wavelengths)
	in := make([]float64, len(intensities))
	copy(in, intensities)
	return Spectrum{
		ID:          id,
		CapturedAt:  at.UTC(),
		Kind:        kind,
		Integration: integration,
		Wavelengths: w,
		Intensities: in,
	}
}

// WithKind returns a copy retagged for a different capture purpose.
func (s Spectrum) WithKind(kind CaptureKind) Spectrum {
	s.Kind = kind
	return s
}

// WithMode returns a copy tagged with a collection mode (Sample captures).
func (s Spectrum) WithMode(mode CollectionMode) Spectrum {
	s.Mode = mode
	return s
}

// Samples reports the channel count.
func (s Spectrum) Samples() int { return len(s.Intensities) }

// Settings is the externally configured capture setup, persisted as a single
// row. IntegrationTime is always hardware-clamped and increment-aligned before
// it is stored.
type Settings struct {
	ID              int            `json:"id"`
	CollectionMode  CollectionMode `json:"collection_mode"`
	IntegrationTime time.Duration  `json:"integration_time_ns"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// StationEvent is a single log entry.
type StationEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // CAPTURE | CALIBRATION | AUTOINTEG | SETTINGS | ERROR
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // don’t expose hash
}
