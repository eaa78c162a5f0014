package service

import (
	"context"
	"time"

	"spectrostation"
	"spectrostation/internal/autointeg"
	"spectrostation/internal/device"
	"spectrostation/internal/repository"
	"spectrostation/internal/spectral"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Station exposes the spectrometer workflow: discrete user inputs, the tick
// that advances live preview and auto-integration, and read-only snapshots.
type Station interface {
	HandleInput(ctx context.Context, name string) error
	Tick(ctx context.Context) error
	Snapshot(ctx context.Context) (StationState, error)
	LatestDisplay() (string, *spectrostation.Spectrum)
}

// Settings exposes the configured capture setup.
type Settings interface {
	Get(ctx context.Context) (spectrostation.Settings, error)
	Update(ctx context.Context, p SettingsParams) (spectrostation.Settings, error)
}

// Spectra exposes read access to committed captures.
type Spectra interface {
	List(ctx context.Context, limit int) ([]spectrostation.Spectrum, error)
	Get(ctx context.Context, id string) (spectrostation.Spectrum, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]spectrostation.StationEvent, error)
}

// Runner drives the station tick loop until the context is cancelled.
// Stop via context cancellation in main() for graceful shutdown.
type Runner interface {
	Run(ctx context.Context)
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Station
	Settings
	Spectra
	EventLog
	Runner
	Authorization
}

// Config carries the non-repository wiring knobs.
type Config struct {
	Controller   autointeg.Config
	TickOverhead time.Duration // added to the integration time between ticks
}

// NewService wires the repository layer, the device, and the shared reference
// set into concrete services.
func NewService(repos *repository.Repository, dev device.Device, refs *spectral.ReferenceSet, cfg Config) *Service {
	settings := NewSettingsService(repos.Settings, repos.Events, dev.Limits())
	station := NewStationService(dev, refs, repos.Spectra, repos.Events, settings, cfg.Controller)
	return &Service{
		Station:       station,
		Settings:      settings,
		Spectra:       NewSpectraService(repos.Spectra),
		EventLog:      NewEventLogService(repos.Events),
		Runner:        NewRunnerService(station, settings, cfg.TickOverhead),
		Authorization: NewAuthService(repos.Auth),
	}
}
