package spectral

import (
	"time"

	"spectrostation"
)

// Validity is the exact reason a reference set can or cannot back a
// reflectance computation at a candidate integration time.
type Validity int

const (
	Valid Validity = iota
	MissingBoth
	MissingDark
	MissingWhite
	DarkMismatch
	WhiteMismatch
	BothMismatch
)

// OK reports whether reflectance may run.
func (v Validity) OK() bool { return v == Valid }

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case MissingBoth:
		return "missing dark and white references"
	case MissingDark:
		return "missing dark reference"
	case MissingWhite:
		return "missing white reference"
	case DarkMismatch:
		return "dark reference integration time mismatch"
	case WhiteMismatch:
		return "white reference integration time mismatch"
	case BothMismatch:
		return "both reference integration times mismatch"
	default:
		return "unknown"
	}
}

// Status is a read-only summary of the reference set for display surfaces.
type Status struct {
	HasDark          bool          `json:"has_dark"`
	HasWhite         bool          `json:"has_white"`
	DarkIntegration  time.Duration `json:"dark_integration_ns,omitempty"`
	WhiteIntegration time.Duration `json:"white_integration_ns,omitempty"`
}

// ReferenceSet holds the committed dark and white calibration captures.
// Entries are overwritten last-write-wins only on an explicit committed save.
// Not safe for concurrent use; the screen workflow owns it.
type ReferenceSet struct {
	dark  *spectrostation.Spectrum
	white *spectrostation.Spectrum
}

// SetDark replaces the dark reference. Idempotent.
func (r *ReferenceSet) SetDark(sp spectrostation.Spectrum) { r.dark = &sp }

// SetWhite replaces the white reference. Idempotent.
func (r *ReferenceSet) SetWhite(sp spectrostation.Spectrum) { r.white = &sp }

// Dark returns the dark reference, if committed.
func (r *ReferenceSet) Dark() (spectrostation.Spectrum, bool) {
	if r.dark == nil {
		return spectrostation.Spectrum{}, false
	}
	return *r.dark, true
}

// White returns the white reference, if committed.
func (r *ReferenceSet) White() (spectrostation.Spectrum, bool) {
	if r.white == nil {
		return spectrostation.Spectrum{}, false
	}
	return *r.white, true
}

// Validity gates reflectance for a candidate integration time: both
// references must exist and each one's stored integration time must equal the
// candidate exactly.
func (r *ReferenceSet) Validity(candidate time.Duration) Validity {
	switch {
	case r.dark == nil && r.white == nil:
		return MissingBoth
	case r.dark == nil:
		return MissingDark
	case r.white == nil:
		return MissingWhite
	}

	darkOff := r.dark.Integration != candidate
	whiteOff := r.white.Integration != candidate
	switch {
	case darkOff && whiteOff:
		return BothMismatch
	case darkOff:
		return DarkMismatch
	case whiteOff:
		return WhiteMismatch
	}
	return Valid
}

// Status summarizes the set for monitoring.
func (r *ReferenceSet) Status() Status {
	st := Status{}
	if r.dark != nil {
		st.HasDark = true
		st.DarkIntegration = r.dark.Integration
	}
	if r.white != nil {
		st.HasWhite = true
		st.WhiteIntegration = r.white.Integration
	}
	return st
}
