package repository

import (
	"context"
	"database/sql"
	"time"

	"spectrostation"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*spectrostation.User, error)
}

// SpectrumRepo stores committed captures.
type SpectrumRepo interface {
	Save(ctx context.Context, sp spectrostation.Spectrum) error
	Get(ctx context.Context, id string) (spectrostation.Spectrum, error)
	List(ctx context.Context, limit int) ([]spectrostation.Spectrum, error)
	LatestByKind(ctx context.Context, kind spectrostation.CaptureKind) (*spectrostation.Spectrum, error)
}

// SettingsRepo stores the single configured-capture row.
type SettingsRepo interface {
	Save(ctx context.Context, s spectrostation.Settings) error
	Load(ctx context.Context) (spectrostation.Settings, error)
}

type EventRepo interface {
	Append(ctx context.Context, e spectrostation.StationEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]spectrostation.StationEvent, error)
}

type Repository struct {
	Spectra  SpectrumRepo
	Settings SettingsRepo
	Events   EventRepo
	Auth     Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Spectra:  NewSpectrumSQLite(db),
		Settings: NewSettingsSQLite(db),
		Events:   NewEventSQLite(db),
		Auth:     NewUserRepository(db),
	}
}
