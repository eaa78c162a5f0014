package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"spectrostation"
)

type SettingsSQLite struct {
	db *sql.DB
}

func NewSettingsSQLite(db *sql.DB) *SettingsSQLite {
	return &SettingsSQLite{db: db}
}

var _ SettingsRepo = (*SettingsSQLite)(nil)

// constants and helpers for clarity and reuse
const (
	settingsRowID = 1

	insertOrUpdateSettingsSQL = `
		INSERT INTO settings (id, collection_mode, integration_ns, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			collection_mode=excluded.collection_mode,
			integration_ns=excluded.integration_ns,
			updated_at=excluded.updated_at
	`

	selectSettingsSQL = `
		SELECT id, collection_mode, integration_ns, updated_at
		FROM settings WHERE id=?
	`
)

// Save updates or inserts the settings row (id always 1).
func (r *SettingsSQLite) Save(ctx context.Context, s spectrostation.Settings) error {
	// ensure UpdatedAt is always persisted as UTC; set if zero
	tsUTC := s.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err := r.db.ExecContext(ctx, insertOrUpdateSettingsSQL,
		settingsRowID,
		string(s.CollectionMode),
		int64(s.IntegrationTime),
		tsUTC,
	)
	return err
}

// Load fetches the single settings row (id=1). Returns a zero value with
// ID==0 when nothing has been persisted yet.
func (r *SettingsSQLite) Load(ctx context.Context) (spectrostation.Settings, error) {
	row := r.db.QueryRowContext(ctx, selectSettingsSQL, settingsRowID)

	var (
		s    spectrostation.Settings
		mode string
		ns   int64
	)
	if err := row.Scan(&s.ID, &mode, &ns, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return spectrostation.Settings{}, nil // no settings yet
		}
		return spectrostation.Settings{}, err
	}

	s.CollectionMode = spectrostation.CollectionMode(mode)
	s.IntegrationTime = time.Duration(ns)
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
