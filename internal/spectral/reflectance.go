package spectral

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"spectrostation"
)

// Reflectance tuning. Epsilon guards the dark-corrected denominator; Ceiling
// bounds the output so a hot pixel in the target cannot blow up the plot.
const (
	DefaultEpsilon = 1e-6
	DefaultCeiling = 2.0
)

// ErrShapeMismatch means the three input spectra do not share one wavelength
// grid. This is a programming error upstream (mixed sensors or truncated
// captures), never a user-recoverable condition.
var ErrShapeMismatch = errors.New("spectra do not share a wavelength grid")

// Reflectance computes the dark-corrected reflectance of target against white,
// per channel: (target-dark)/(white-dark). Channels whose denominator is
// within epsilon of zero yield 0 instead of Inf/NaN. The output is clamped to
// [0, ceiling] and carries the target's timestamp and integration time.
func Reflectance(target, dark, white spectrostation.Spectrum, epsilon, ceiling float64) (spectrostation.Spectrum, error) {
	if err := checkSharedGrid(target, dark, white); err != nil {
		return spectrostation.Spectrum{}, err
	}
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}

	out := make([]float64, target.Samples())
	for i := range out {
		num := target.Intensities[i] - dark.Intensities[i]
		den := white.Intensities[i] - dark.Intensities[i]

		var r float64
		if den > epsilon || den < -epsilon {
			r = num / den
		}
		if r < 0 {
			r = 0
		}
		if r > ceiling {
			r = ceiling
		}
		out[i] = r
	}

	sp := spectrostation.NewSpectrum(
		uuid.NewString(),
		target.CapturedAt,
		target.Kind,
		target.Integration,
		target.Wavelengths,
		out,
	)
	return sp.WithMode(spectrostation.ModeReflectance), nil
}

// Peak returns the highest intensity sample, or 0 for an empty spectrum.
func Peak(sp spectrostation.Spectrum) float64 {
	if len(sp.Intensities) == 0 {
		return 0
	}
	return floats.Max(sp.Intensities)
}

// checkSharedGrid fails fast when the three spectra differ in length or grid.
func checkSharedGrid(target, dark, white spectrostation.Spectrum) error {
	n := target.Samples()
	if n == 0 || dark.Samples() != n || white.Samples() != n {
		return fmt.Errorf("%w: target=%d dark=%d white=%d samples",
			ErrShapeMismatch, n, dark.Samples(), white.Samples())
	}
	if len(target.Wavelengths) != n || len(dark.Wavelengths) != n || len(white.Wavelengths) != n {
		return fmt.Errorf("%w: wavelength/intensity length disagreement", ErrShapeMismatch)
	}
	for i := 0; i < n; i++ {
		if target.Wavelengths[i] != dark.Wavelengths[i] || target.Wavelengths[i] != white.Wavelengths[i] {
			return fmt.Errorf("%w: grids diverge at channel %d", ErrShapeMismatch, i)
		}
	}
	return nil
}
