package service

import (
	"time"

	"spectrostation"
	"spectrostation/internal/device"
	"spectrostation/internal/screen"
)

// SettingsParams carries a partial settings update; zero values keep the
// current setting.
type SettingsParams struct {
	CollectionMode  string        // "RAW" | "REFLECTANCE" | "" (keep)
	IntegrationTime time.Duration // <= 0 keeps the current value
}

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "CAPTURE", "CALIBRATION", "AUTOINTEG", "SETTINGS", "ERROR"
}

// StationState is the full read-only station snapshot for API surfaces.
type StationState struct {
	Workflow     screen.Snapshot         `json:"workflow"`
	Settings     spectrostation.Settings `json:"settings"`
	Limits       device.Limits           `json:"limits"`
	DisplayLabel string                  `json:"display_label,omitempty"`
}
