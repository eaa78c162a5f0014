package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spectrostation"
	"spectrostation/internal/device"
	"spectrostation/internal/repository"
)

// Defaults for an uninitialized station.
const (
	defaultCollectionMode     = spectrostation.ModeRaw
	defaultIntegrationSetting = 100 * time.Millisecond
)

var errInvalidCollectionMode = errors.New("invalid collection mode: must be RAW or REFLECTANCE")

// SettingsService is the settings collaborator: it persists the configured
// collection mode and integration time, clamping and increment-aligning every
// stored time to the hardware window.
type SettingsService struct {
	repo   repository.SettingsRepo
	events repository.EventRepo
	limits device.Limits
}

func NewSettingsService(repo repository.SettingsRepo, events repository.EventRepo, limits device.Limits) *SettingsService {
	return &SettingsService{repo: repo, events: events, limits: limits}
}

// Get returns the persisted settings, or a hardware-aligned baseline when
// nothing has been stored yet.
func (s *SettingsService) Get(ctx context.Context) (spectrostation.Settings, error) {
	st, err := s.repo.Load(ctx)
	if err != nil {
		return spectrostation.Settings{}, err
	}
	if st.ID == 0 {
		return s.baseline(), nil
	}
	st.IntegrationTime = s.limits.AlignIntegration(st.IntegrationTime)
	st.UpdatedAt = st.UpdatedAt.UTC()
	return st, nil
}

// Update applies a partial settings change and persists the result.
func (s *SettingsService) Update(ctx context.Context, p SettingsParams) (spectrostation.Settings, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return spectrostation.Settings{}, err
	}

	if p.CollectionMode != "" {
		mode := spectrostation.CollectionMode(p.CollectionMode)
		if mode != spectrostation.ModeRaw && mode != spectrostation.ModeReflectance {
			return spectrostation.Settings{}, errInvalidCollectionMode
		}
		st.CollectionMode = mode
	}
	if p.IntegrationTime > 0 {
		st.IntegrationTime = s.limits.AlignIntegration(p.IntegrationTime)
	}
	st.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, st); err != nil {
		return spectrostation.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	_ = s.events.Append(ctx, spectrostation.StationEvent{
		Type:        "SETTINGS",
		Description: "settings updated",
		Metadata: map[string]any{
			"collection_mode": st.CollectionMode,
			"integration_us":  st.IntegrationTime.Microseconds(),
		},
	})
	return st, nil
}

// Current implements the workflow's settings port.
func (s *SettingsService) Current(ctx context.Context) (spectrostation.Settings, error) {
	return s.Get(ctx)
}

// SetIntegrationTime commits an auto-integration result as the configured
// time and returns the value actually stored after clamp/alignment.
func (s *SettingsService) SetIntegrationTime(ctx context.Context, t time.Duration) (time.Duration, error) {
	st, err := s.Update(ctx, SettingsParams{IntegrationTime: t})
	if err != nil {
		return 0, err
	}
	return st.IntegrationTime, nil
}

// baseline returns a sensible default setup for an uninitialized DB.
func (s *SettingsService) baseline() spectrostation.Settings {
	return spectrostation.Settings{
		ID:              1, // DB schema enforces single-row settings with id=1
		CollectionMode:  defaultCollectionMode,
		IntegrationTime: s.limits.AlignIntegration(defaultIntegrationSetting),
		UpdatedAt:       time.Now().UTC(),
	}
}
