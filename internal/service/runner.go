package service

import (
	"context"
	"time"
)

// Pacing between ticks: one exposure takes roughly the integration time, so
// the loop sleeps integration + overhead before the next tick. A floor keeps
// the loop from spinning when the configured time is tiny.
const (
	DefaultTickOverhead = 50 * time.Millisecond
	minTickInterval     = 20 * time.Millisecond
)

// RunnerService drives the station workflow: one Tick per iteration until the
// context is cancelled. Tick errors are already recorded in the event log by
// the workflow, so the loop just keeps going.
type RunnerService struct {
	station  Station
	settings *SettingsService
	overhead time.Duration
}

func NewRunnerService(station Station, settings *SettingsService, overhead time.Duration) *RunnerService {
	if overhead <= 0 {
		overhead = DefaultTickOverhead
	}
	return &RunnerService{station: station, settings: settings, overhead: overhead}
}

// Run ticks until ctx is cancelled.
func (r *RunnerService) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		_ = r.station.Tick(ctx)

		wait := r.overhead
		if st, err := r.settings.Get(ctx); err == nil {
			wait += st.IntegrationTime
		}
		if wait < minTickInterval {
			wait = minTickInterval
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
