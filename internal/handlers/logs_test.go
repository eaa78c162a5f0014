package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"spectrostation"
	"spectrostation/internal/service"
)

func TestLogsHandler_ListAndValidation(t *testing.T) {
	auth := &mockAuth{parseID: 99}
	now := time.Now().UTC().Truncate(time.Second)
	events := []spectrostation.StationEvent{
		{EventID: "e1", OccurredAt: now, Type: "CAPTURE", Description: "sample saved"},
		{EventID: "e2", OccurredAt: now.Add(1 * time.Second), Type: "CALIBRATION", Description: "dark reference"},
	}
	logs := &mockEventLog{resp: events}
	s := &service.Service{
		Authorization: auth,
		EventLog:      logs,
	}
	r := newTestRouter(s)

	// Missing/invalid 'from' → 400
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/logs/?from=notatime", nil)
	addAuth(req)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}

	// Valid range and type (lowercase type should be normalized to upper in service call)
	w = httptest.NewRecorder()
	q := "/api/v1/logs/?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&type=calibration"
	req = httptest.NewRequest(http.MethodGet, q, nil)
	addAuth(req)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int                           `json:"count"`
		Events []spectrostation.StationEvent `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if logs.lastType != "CALIBRATION" {
		t.Fatalf("expected lastType CALIBRATION, got %q", logs.lastType)
	}
}

func TestLogsHandler_DateOnlyToIsEndOfDay(t *testing.T) {
	auth := &mockAuth{parseID: 99}
	logs := &mockEventLog{}
	s := &service.Service{Authorization: auth, EventLog: logs}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/logs/?to=2026-08-24", nil)
	addAuth(req)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}

	endOfDay := time.Date(2026, 8, 24, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	if !logs.lastTo.Equal(endOfDay) {
		t.Fatalf("expected end-of-day %v, got %v", endOfDay, logs.lastTo)
	}
}

func TestLogsHandler_FromAfterToRejected(t *testing.T) {
	auth := &mockAuth{parseID: 99}
	logs := &mockEventLog{}
	s := &service.Service{Authorization: auth, EventLog: logs}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/logs/?from=2026-02-01&to=2026-01-01", nil)
	addAuth(req)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", w.Code)
	}
	var out struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Error != "'from' must be <= 'to'" {
		t.Fatalf("error message: got %q", out.Error)
	}
}
