package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spectrostation"
)

type SpectrumSQLite struct {
	db *sql.DB
}

func NewSpectrumSQLite(db *sql.DB) *SpectrumSQLite { return &SpectrumSQLite{db: db} }

var _ SpectrumRepo = (*SpectrumSQLite)(nil)

// ErrSpectrumNotFound is returned by Get for an unknown id.
var ErrSpectrumNotFound = errors.New("spectrum not found")

const (
	insertSpectrumSQL = `
		INSERT INTO spectra (id, captured_at, kind, mode, integration_ns, wavelengths, intensities)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	selectSpectrumColumns = `id, captured_at, kind, mode, integration_ns, wavelengths, intensities`
)

// marshalVector stores a float vector as a JSON text column.
func marshalVector(v []float64) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalVector(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	var v []float64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Save inserts one committed capture. If the ID is empty, one is assigned.
func (r *SpectrumSQLite) Save(ctx context.Context, sp spectrostation.Spectrum) error {
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	capturedAt := sp.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	} else {
		capturedAt = capturedAt.UTC()
	}

	wl, err := marshalVector(sp.Wavelengths)
	if err != nil {
		return fmt.Errorf("marshal wavelengths: %w", err)
	}
	in, err := marshalVector(sp.Intensities)
	if err != nil {
		return fmt.Errorf("marshal intensities: %w", err)
	}

	_, err = r.db.ExecContext(ctx, insertSpectrumSQL,
		sp.ID,
		capturedAt,
		string(sp.Kind),
		string(sp.Mode),
		int64(sp.Integration),
		wl,
		in,
	)
	return err
}

// Get fetches one capture by id.
func (r *SpectrumSQLite) Get(ctx context.Context, id string) (spectrostation.Spectrum, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectSpectrumColumns+` FROM spectra WHERE id=?`, id)

	sp, err := scanSpectrum(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return spectrostation.Spectrum{}, ErrSpectrumNotFound
		}
		return spectrostation.Spectrum{}, err
	}
	return sp, nil
}

// List returns the most recent captures, newest first.
func (r *SpectrumSQLite) List(ctx context.Context, limit int) ([]spectrostation.Spectrum, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectSpectrumColumns+` FROM spectra ORDER BY captured_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]spectrostation.Spectrum, 0, limit)
	for rows.Next() {
		sp, err := scanSpectrum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestByKind returns the newest capture of a kind, or nil when none exists.
// Used to re-seed the reference set after a restart.
func (r *SpectrumSQLite) LatestByKind(ctx context.Context, kind spectrostation.CaptureKind) (*spectrostation.Spectrum, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectSpectrumColumns+` FROM spectra WHERE kind=? ORDER BY captured_at DESC LIMIT 1`,
		string(kind))

	sp, err := scanSpectrum(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sp, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSpectrum(row scanner) (spectrostation.Spectrum, error) {
	var (
		sp   spectrostation.Spectrum
		kind string
		mode sql.NullString
		ns   int64
		wl   string
		in   string
	)
	if err := row.Scan(&sp.ID, &sp.CapturedAt, &kind, &mode, &ns, &wl, &in); err != nil {
		return spectrostation.Spectrum{}, err
	}
	sp.CapturedAt = sp.CapturedAt.UTC()
	sp.Kind = spectrostation.CaptureKind(kind)
	if mode.Valid {
		sp.Mode = spectrostation.CollectionMode(mode.String)
	}
	sp.Integration = time.Duration(ns)

	var err error
	if sp.Wavelengths, err = unmarshalVector(wl); err != nil {
		return spectrostation.Spectrum{}, fmt.Errorf("unmarshal wavelengths: %w", err)
	}
	if sp.Intensities, err = unmarshalVector(in); err != nil {
		return spectrostation.Spectrum{}, fmt.Errorf("unmarshal intensities: %w", err)
	}
	return sp, nil
}
