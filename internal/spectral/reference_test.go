package spectral

import (
	"testing"
	"time"

	"spectrostation"
)

func refSpectrum(kind spectrostation.CaptureKind, integration time.Duration) spectrostation.Spectrum {
	return spectrostation.NewSpectrum("ref", time.Now(), kind, integration,
		[]float64{400, 500, 600}, []float64{1, 2, 3})
}

func TestReferenceSet_Validity(t *testing.T) {
	t.Parallel()

	const candidate = 100 * time.Millisecond
	const other = 200 * time.Millisecond

	cases := []struct {
		name  string
		dark  *time.Duration
		white *time.Duration
		want  Validity
	}{
		{"both missing", nil, nil, MissingBoth},
		{"dark missing", nil, durPtr(candidate), MissingDark},
		{"white missing", durPtr(candidate), nil, MissingWhite},
		{"both match", durPtr(candidate), durPtr(candidate), Valid},
		{"dark mismatch", durPtr(other), durPtr(candidate), DarkMismatch},
		{"white mismatch", durPtr(candidate), durPtr(other), WhiteMismatch},
		{"both mismatch", durPtr(other), durPtr(other), BothMismatch},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			refs := &ReferenceSet{}
			if tc.dark != nil {
				refs.SetDark(refSpectrum(spectrostation.KindDark, *tc.dark))
			}
			if tc.white != nil {
				refs.SetWhite(refSpectrum(spectrostation.KindWhite, *tc.white))
			}
			if got := refs.Validity(candidate); got != tc.want {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
			if tc.want == Valid && !refs.Validity(candidate).OK() {
				t.Fatal("Valid should report OK")
			}
		})
	}
}

func TestReferenceSet_OverwriteAndStatus(t *testing.T) {
	t.Parallel()

	refs := &ReferenceSet{}
	if st := refs.Status(); st.HasDark || st.HasWhite {
		t.Fatalf("empty set should report nothing committed: %+v", st)
	}

	refs.SetDark(refSpectrum(spectrostation.KindDark, 50*time.Millisecond))
	refs.SetDark(refSpectrum(spectrostation.KindDark, 80*time.Millisecond)) // last write wins

	dark, ok := refs.Dark()
	if !ok {
		t.Fatal("dark reference should be committed")
	}
	if dark.Integration != 80*time.Millisecond {
		t.Fatalf("want 80ms dark integration, got %v", dark.Integration)
	}

	st := refs.Status()
	if !st.HasDark || st.HasWhite {
		t.Fatalf("status after dark-only commit: %+v", st)
	}
	if st.DarkIntegration != 80*time.Millisecond {
		t.Fatalf("status dark integration: want 80ms, got %v", st.DarkIntegration)
	}
}

func durPtr(d time.Duration) *time.Duration { return &d }
