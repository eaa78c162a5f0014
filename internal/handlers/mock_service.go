package handlers

import (
	"context"
	"net/http"
	"time"

	"spectrostation"
	"spectrostation/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockStation struct {
	inputErr    error
	tickErr     error
	state       service.StationState
	stateErr    error
	label       string
	spectrum    *spectrostation.Spectrum
	lastInput   string
	inputCalls  int
	tickCalls   int
	stateCalls  int
	latestCalls int
}

func (m *mockStation) HandleInput(ctx context.Context, name string) error {
	m.inputCalls++
	m.lastInput = name
	return m.inputErr
}
func (m *mockStation) Tick(ctx context.Context) error {
	m.tickCalls++
	return m.tickErr
}
func (m *mockStation) Snapshot(ctx context.Context) (service.StationState, error) {
	m.stateCalls++
	return m.state, m.stateErr
}
func (m *mockStation) LatestDisplay() (string, *spectrostation.Spectrum) {
	m.latestCalls++
	return m.label, m.spectrum
}

type mockSettings struct {
	settings   spectrostation.Settings
	getErr     error
	updateErr  error
	lastParams service.SettingsParams
	updates    int
}

func (m *mockSettings) Get(ctx context.Context) (spectrostation.Settings, error) {
	return m.settings, m.getErr
}
func (m *mockSettings) Update(ctx context.Context, p service.SettingsParams) (spectrostation.Settings, error) {
	m.updates++
	m.lastParams = p
	if m.updateErr != nil {
		return spectrostation.Settings{}, m.updateErr
	}
	return m.settings, nil
}

type mockSpectra struct {
	list      []spectrostation.Spectrum
	listErr   error
	get       spectrostation.Spectrum
	getErr    error
	lastLimit int
	lastID    string
}

func (m *mockSpectra) List(ctx context.Context, limit int) ([]spectrostation.Spectrum, error) {
	m.lastLimit = limit
	return m.list, m.listErr
}
func (m *mockSpectra) Get(ctx context.Context, id string) (spectrostation.Spectrum, error) {
	m.lastID = id
	return m.get, m.getErr
}

type mockEventLog struct {
	resp     []spectrostation.StationEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]spectrostation.StationEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
