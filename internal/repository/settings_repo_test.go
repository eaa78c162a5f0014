package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	"spectrostation"
	"spectrostation/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSettingsSQLite_Save_SetsUTCNow_WhenTimeZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSettingsSQLite(db)

	settings := spectrostation.Settings{
		CollectionMode:  spectrostation.ModeReflectance,
		IntegrationTime: 250 * time.Millisecond,
		// UpdatedAt is zero
	}

	isUTCRecent := sqlmockArgumentFunc(func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		if !ok {
			return false
		}
		if tm.Location() != time.UTC {
			return false
		}
		now := time.Now().UTC()
		if tm.Before(now.Add(-5*time.Second)) || tm.After(now.Add(5*time.Second)) {
			return false
		}
		return true
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO settings")).
		WithArgs(
			1, // single-row id constant
			"REFLECTANCE",
			int64(250*time.Millisecond),
			isUTCRecent,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), settings); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSettingsSQLite_Save_PreservesGivenTimeButConvertsToUTC(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSettingsSQLite(db)

	locTokyo, _ := time.LoadLocation("Asia/Tokyo")
	original := time.Date(2026, 3, 5, 12, 34, 56, 0, locTokyo) // non-UTC
	expectedUTC := original.UTC()

	settings := spectrostation.Settings{
		CollectionMode:  spectrostation.ModeRaw,
		IntegrationTime: 5 * time.Millisecond,
		UpdatedAt:       original,
	}

	isExactUTC := sqlmockArgumentFunc(func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		if !ok {
			return false
		}
		return tm.Equal(expectedUTC) && tm.Location() == time.UTC
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO settings")).
		WithArgs(
			1,
			"RAW",
			int64(5*time.Millisecond),
			isExactUTC,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), settings); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSettingsSQLite_Save_ExecErrorIsPropagated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSettingsSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO settings")).
		WithArgs(
			1,
			"RAW",
			int64(100*time.Millisecond),
			sqlmock.AnyArg(), // time
		).
		WillReturnError(errors.New("db down"))

	settings := spectrostation.Settings{
		CollectionMode:  spectrostation.ModeRaw,
		IntegrationTime: 100 * time.Millisecond,
	}
	if err := repo.Save(context.Background(), settings); err == nil {
		t.Fatalf("Save() expected error, got nil")
	}
}

func TestSettingsSQLite_Load_NoRowsReturnsZeroValueAndNilError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSettingsSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, collection_mode, integration_ns, updated_at")).
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	var zero spectrostation.Settings
	if !reflect.DeepEqual(got, zero) {
		t.Fatalf("Load() expected zero settings, got: %+v", got)
	}
}

func TestSettingsSQLite_Load_HappyPath_ConvertsTypesAndUTC(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSettingsSQLite(db)

	cols := []string{"id", "collection_mode", "integration_ns", "updated_at"}
	locNY, _ := time.LoadLocation("America/New_York")
	nonUTC := time.Date(2026, 2, 1, 8, 30, 0, 0, locNY)

	rows := sqlmock.NewRows(cols).
		AddRow(
			1,
			"REFLECTANCE",
			int64(42*time.Millisecond),
			nonUTC, // DB gives a non-UTC time; Load should convert to UTC
		)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, collection_mode, integration_ns, updated_at")).
		WithArgs(1).
		WillReturnRows(rows)

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if got.ID != 1 ||
		got.CollectionMode != spectrostation.ModeReflectance ||
		got.IntegrationTime != 42*time.Millisecond {
		t.Fatalf("Load() unexpected fields: %+v", got)
	}
	if got.UpdatedAt.Location() != time.UTC {
		t.Fatalf("Load() UpdatedAt not UTC: %v (%v)", got.UpdatedAt, got.UpdatedAt.Location())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Helpers

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool {
	return f(v)
}
