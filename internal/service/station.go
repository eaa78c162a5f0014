package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"spectrostation"
	"spectrostation/internal/autointeg"
	"spectrostation/internal/device"
	"spectrostation/internal/repository"
	"spectrostation/internal/screen"
	"spectrostation/internal/spectral"
)

// StationService serializes all access to the screen workflow. The core is
// single-threaded by design; HTTP handlers and the tick runner meet here and
// take turns under one mutex.
type StationService struct {
	mu       sync.Mutex
	machine  *screen.Machine
	settings *SettingsService
	limits   device.Limits

	display *displayBuffer
}

func NewStationService(
	dev device.Device,
	refs *spectral.ReferenceSet,
	spectra repository.SpectrumRepo,
	events repository.EventRepo,
	settings *SettingsService,
	controller autointeg.Config,
) *StationService {
	display := &displayBuffer{}
	machine := screen.New(screen.Deps{
		Device:     dev,
		Sink:       spectrumSink{spectra: spectra},
		Display:    display,
		Settings:   settings,
		Events:     eventRecorder{events: events},
		References: refs,
		Controller: controller,
	})
	return &StationService{
		machine:  machine,
		settings: settings,
		limits:   dev.Limits(),
		display:  display,
	}
}

// HandleInput dispatches one named user input (enter/back/up/down).
func (s *StationService) HandleInput(ctx context.Context, name string) error {
	in, err := screen.ParseInput(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Handle(ctx, in)
}

// Tick advances the workflow one step.
func (s *StationService) Tick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Tick(ctx)
}

// Snapshot returns the workflow state plus the configured settings.
func (s *StationService) Snapshot(ctx context.Context) (StationState, error) {
	s.mu.Lock()
	snap := s.machine.Snapshot()
	s.mu.Unlock()

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return StationState{}, err
	}

	label, _ := s.display.latest()
	return StationState{
		Workflow:     snap,
		Settings:     settings,
		Limits:       s.limits,
		DisplayLabel: label,
	}, nil
}

// LatestDisplay returns the most recent displayable spectrum and its label.
func (s *StationService) LatestDisplay() (string, *spectrostation.Spectrum) {
	return s.display.latest()
}

// ----------- Collaborator adapters -----------

// displayBuffer is the rendering collaborator: it keeps the latest displayable
// spectrum for the snapshot API and the websocket stream.
type displayBuffer struct {
	mu    sync.RWMutex
	label string
	sp    *spectrostation.Spectrum
}

func (d *displayBuffer) Show(label string, sp spectrostation.Spectrum) {
	d.mu.Lock()
	d.label = label
	d.sp = &sp
	d.mu.Unlock()
}

func (d *displayBuffer) latest() (string, *spectrostation.Spectrum) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.sp == nil {
		return d.label, nil
	}
	sp := *d.sp
	return d.label, &sp
}

// spectrumSink adapts the repository to the workflow's persistence port.
type spectrumSink struct {
	spectra repository.SpectrumRepo
}

func (s spectrumSink) SaveSpectrum(ctx context.Context, sp spectrostation.Spectrum) error {
	return s.spectra.Save(ctx, sp)
}

// eventRecorder adapts the event repository to the workflow's log port.
// Append failures are dropped; the log is best-effort by contract.
type eventRecorder struct {
	events repository.EventRepo
}

func (r eventRecorder) Record(ctx context.Context, typ, description string, meta map[string]any) {
	var metadata any
	if len(meta) > 0 {
		metadata = meta
	}
	_ = r.events.Append(ctx, spectrostation.StationEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		Description: description,
		Metadata:    metadata,
	})
}
