package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"spectrostation"
	"spectrostation/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSpectrumSQLite_Save_MarshalsVectorsAndAssignsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSpectrumSQLite(db)

	isNonEmptyString := sqlmockArgumentFunc(func(v driver.Value) bool {
		s, ok := v.(string)
		return ok && s != ""
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO spectra")).
		WithArgs(
			isNonEmptyString, // generated id
			sqlmock.AnyArg(), // captured_at set to UTC now
			"SAMPLE",
			"RAW",
			int64(100*time.Millisecond),
			"[400,500,600]",
			"[1.5,2,3]",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sp := spectrostation.Spectrum{
		// ID empty -> repo generates
		// CapturedAt zero -> repo sets UTC now
		Kind:        spectrostation.KindSample,
		Mode:        spectrostation.ModeRaw,
		Integration: 100 * time.Millisecond,
		Wavelengths: []float64{400, 500, 600},
		Intensities: []float64{1.5, 2, 3},
	}
	if err := repo.Save(context.Background(), sp); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSpectrumSQLite_Save_ExecErrorIsPropagated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSpectrumSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO spectra")).
		WillReturnError(errors.New("disk full"))

	sp := spectrostation.Spectrum{Kind: spectrostation.KindDark}
	if err := repo.Save(context.Background(), sp); err == nil {
		t.Fatalf("Save() expected error, got nil")
	}
}

func TestSpectrumSQLite_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSpectrumSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, captured_at, kind, mode, integration_ns, wavelengths, intensities")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.Get(context.Background(), "missing")
	if !errors.Is(err, repository.ErrSpectrumNotFound) {
		t.Fatalf("Get() expected ErrSpectrumNotFound, got %v", err)
	}
}

func TestSpectrumSQLite_Get_HappyPath_ParsesVectorsAndUTC(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSpectrumSQLite(db)

	cols := []string{"id", "captured_at", "kind", "mode", "integration_ns", "wavelengths", "intensities"}
	locNY, _ := time.LoadLocation("America/New_York")
	nonUTC := time.Date(2026, 4, 2, 9, 15, 0, 0, locNY)

	rows := sqlmock.NewRows(cols).
		AddRow(
			"abc",
			nonUTC,
			"WHITE",
			nil, // references carry no collection mode
			int64(42*time.Millisecond),
			"[400,500]",
			"[1200,1300]",
		)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, captured_at, kind, mode, integration_ns, wavelengths, intensities")).
		WithArgs("abc").
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}

	if got.ID != "abc" ||
		got.Kind != spectrostation.KindWhite ||
		got.Integration != 42*time.Millisecond {
		t.Fatalf("Get() unexpected fields: %+v", got)
	}
	if got.Mode != "" {
		t.Fatalf("Get() expected empty mode, got %q", got.Mode)
	}
	if got.CapturedAt.Location() != time.UTC {
		t.Fatalf("Get() CapturedAt not UTC: %v", got.CapturedAt.Location())
	}
	if len(got.Wavelengths) != 2 || got.Wavelengths[1] != 500 {
		t.Fatalf("Get() wavelengths mismatch: %v", got.Wavelengths)
	}
	if len(got.Intensities) != 2 || got.Intensities[0] != 1200 {
		t.Fatalf("Get() intensities mismatch: %v", got.Intensities)
	}
}

func TestSpectrumSQLite_Get_InvalidVectorJSON_ReturnsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSpectrumSQLite(db)

	cols := []string{"id", "captured_at", "kind", "mode", "integration_ns", "wavelengths", "intensities"}
	rows := sqlmock.NewRows(cols).
		AddRow("abc", time.Now(), "SAMPLE", "RAW", int64(time.Millisecond),
			`{not: "an array"}`, "[1]")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, captured_at, kind, mode, integration_ns, wavelengths, intensities")).
		WithArgs("abc").
		WillReturnRows(rows)

	if _, err := repo.Get(context.Background(), "abc"); err == nil {
		t.Fatalf("Get() expected error due to invalid vector JSON, got nil")
	}
}

func TestSpectrumSQLite_List_DefaultsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSpectrumSQLite(db)

	cols := []string{"id", "captured_at", "kind", "mode", "integration_ns", "wavelengths", "intensities"}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(cols).
		AddRow("b", now, "SAMPLE", "RAW", int64(time.Millisecond), "[1]", "[2]").
		AddRow("a", now.Add(-time.Minute), "SAMPLE", "RAW", int64(time.Millisecond), "[1]", "[2]")

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY captured_at DESC LIMIT ?")).
		WithArgs(50). // non-positive limit falls back to 50
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("List() unexpected results: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSpectrumSQLite_LatestByKind_NoneIsNilNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSpectrumSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE kind=? ORDER BY captured_at DESC LIMIT 1")).
		WithArgs("DARK").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.LatestByKind(context.Background(), spectrostation.KindDark)
	if err != nil {
		t.Fatalf("LatestByKind() unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("LatestByKind() expected nil, got %+v", got)
	}
}

func TestSpectrumSQLite_LatestByKind_ReturnsNewest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {

		}
	}(db)

	repo := repository.NewSpectrumSQLite(db)

	cols := []string{"id", "captured_at", "kind", "mode", "integration_ns", "wavelengths", "intensities"}
	rows := sqlmock.NewRows(cols).
		AddRow("w1", time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC), "WHITE", nil,
			int64(42*time.Millisecond), "[400]", "[9000]")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE kind=? ORDER BY captured_at DESC LIMIT 1")).
		WithArgs("WHITE").
		WillReturnRows(rows)

	got, err := repo.LatestByKind(context.Background(), spectrostation.KindWhite)
	if err != nil {
		t.Fatalf("LatestByKind() unexpected error: %v", err)
	}
	if got == nil || got.ID != "w1" || got.Kind != spectrostation.KindWhite {
		t.Fatalf("LatestByKind() unexpected result: %+v", got)
	}
}
