package screen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spectrostation"
	"spectrostation/internal/autointeg"
	"spectrostation/internal/device"
	"spectrostation/internal/spectral"
)

// State names the active screen.
type State string

const (
	StateLiveView         State = "LIVE_VIEW"
	StateCalibrateMenu    State = "CALIBRATE_MENU"
	StateDarkSetup        State = "DARK_SETUP"
	StateWhiteSetup       State = "WHITE_SETUP"
	StateFrozenView       State = "FROZEN_VIEW"
	StateAutoIntegSetup   State = "AUTOINTEG_SETUP"
	StateAutoIntegRunning State = "AUTOINTEG_RUNNING"
	StateAutoIntegConfirm State = "AUTOINTEG_CONFIRM"
)

// Input is one discrete user action dispatched to the active state.
type Input string

const (
	InputEnter Input = "enter"
	InputBack  Input = "back"
	InputUp    Input = "up"
	InputDown  Input = "down"
)

// ParseInput validates an input name from an external surface.
func ParseInput(s string) (Input, error) {
	switch Input(s) {
	case InputEnter, InputBack, InputUp, InputDown:
		return Input(s), nil
	}
	return "", fmt.Errorf("unknown input %q", s)
}

// Menu entries of the calibrate screen, in cursor order.
var menuItems = []string{"DARK", "WHITE", "AUTOINTEG"}

const (
	menuDark = iota
	menuWhite
	menuAutoInteg
)

// Display rescale bounds for Up/Down in live view.
const (
	scaleStep = 1.25
	scaleMin  = 0.25
	scaleMax  = 16.0
)

// Event types recorded through the Recorder collaborator.
const (
	EventCapture     = "CAPTURE"
	EventCalibration = "CALIBRATION"
	EventAutoInteg   = "AUTOINTEG"
	EventError       = "ERROR"
)

// ----------- Outbound collaborators -----------

// SpectrumSink persists committed captures.
type SpectrumSink interface {
	SaveSpectrum(ctx context.Context, sp spectrostation.Spectrum) error
}

// Display receives the currently displayable spectrum and its label.
type Display interface {
	Show(label string, sp spectrostation.Spectrum)
}

// SettingsStore supplies the configured collection mode and integration time,
// and accepts the committed result of an auto-integration run. SetIntegrationTime
// returns the value actually stored after hardware clamping/alignment.
type SettingsStore interface {
	Current(ctx context.Context) (spectrostation.Settings, error)
	SetIntegrationTime(ctx context.Context, t time.Duration) (time.Duration, error)
}

// Recorder appends workflow events to the station log.
type Recorder interface {
	Record(ctx context.Context, typ, description string, meta map[string]any)
}

// Deps bundles everything the workflow consumes.
type Deps struct {
	Device     device.Device
	Sink       SpectrumSink
	Display    Display
	Settings   SettingsStore
	Events     Recorder
	References *spectral.ReferenceSet
	Controller autointeg.Config
}

// frozen is the single pending-capture variant. Clearing pending data is one
// assignment, never a field-by-field sweep.
type frozen struct {
	kind     spectrostation.CaptureKind
	spectrum spectrostation.Spectrum
}

// Machine drives the capture/review/calibration workflow. At most one frozen
// capture or auto-integration session exists at a time; starting a new one
// discards the prior. Single-threaded: the caller serializes Handle and Tick.
type Machine struct {
	deps   Deps
	limits device.Limits

	state   State
	cursor  int
	scale   float64
	frozen  *frozen
	session *autointeg.Session

	// blockReason explains the last refused capture action, for display.
	blockReason string
}

// New builds the workflow in live view.
func New(deps Deps) *Machine {
	return &Machine{
		deps:   deps,
		limits: deps.Device.Limits(),
		state:  StateLiveView,
		scale:  1,
	}
}

// State returns the active screen.
func (m *Machine) State() State { return m.state }

// Handle dispatches one user input to the active screen.
func (m *Machine) Handle(ctx context.Context, in Input) error {
	m.blockReason = ""
	switch m.state {
	case StateLiveView:
		return m.handleLiveView(ctx, in)
	case StateCalibrateMenu:
		return m.handleCalibrateMenu(ctx, in)
	case StateDarkSetup:
		return m.handleReferenceSetup(ctx, in, spectrostation.KindDark)
	case StateWhiteSetup:
		return m.handleReferenceSetup(ctx, in, spectrostation.KindWhite)
	case StateFrozenView:
		return m.handleFrozenView(ctx, in)
	case StateAutoIntegSetup:
		return m.handleAutoIntegSetup(ctx, in)
	case StateAutoIntegRunning:
		return m.handleAutoIntegRunning(ctx, in)
	case StateAutoIntegConfirm:
		return m.handleAutoIntegConfirm(ctx, in)
	}
	return fmt.Errorf("input %q in unknown screen %q", in, m.state)
}

// Tick advances time-driven work: a live preview capture in live view, one
// controller step while auto-integration runs. Cancellation is observed here,
// at the top of the tick; it cannot interrupt an in-flight exposure.
func (m *Machine) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch m.state {
	case StateLiveView:
		return m.tickLiveView(ctx)
	case StateAutoIntegRunning:
		return m.tickAutoInteg(ctx)
	}
	return nil
}

// ----------- Live view -----------

func (m *Machine) handleLiveView(ctx context.Context, in Input) error {
	switch in {
	case InputEnter:
		return m.freezeSample(ctx)
	case InputBack:
		m.state = StateCalibrateMenu
		m.cursor = menuDark
	case InputUp:
		if m.scale*scaleStep <= scaleMax {
			m.scale *= scaleStep
		}
	case InputDown:
		if m.scale/scaleStep >= scaleMin {
			m.scale /= scaleStep
		}
	}
	return nil
}

// freezeSample captures one Sample at the configured settings and enters the
// frozen review screen. In reflectance mode the capture is blocked unless the
// reference set is valid for the configured integration time.
func (m *Machine) freezeSample(ctx context.Context) error {
	settings, err := m.deps.Settings.Current(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if settings.CollectionMode == spectrostation.ModeReflectance {
		if v := m.deps.References.Validity(settings.IntegrationTime); !v.OK() {
			m.blockReason = v.String()
			m.deps.Events.Record(ctx, EventCapture, "reflectance freeze blocked: "+v.String(), nil)
			return nil
		}
	}

	// Discard any stale preview before the new exposure starts.
	m.clearPending()

	sp, ok, err := m.capture(ctx, settings.IntegrationTime)
	if err != nil || !ok {
		return err
	}
	sp = sp.WithKind(spectrostation.KindSample).WithMode(settings.CollectionMode)

	if settings.CollectionMode == spectrostation.ModeReflectance {
		sp, err = m.computeReflectance(sp)
		if err != nil {
			return err
		}
	}

	m.frozen = &frozen{kind: spectrostation.KindSample, spectrum: sp}
	m.state = StateFrozenView
	m.deps.Display.Show(displayLabel(sp), sp)
	return nil
}

func (m *Machine) tickLiveView(ctx context.Context) error {
	settings, err := m.deps.Settings.Current(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	sp, ok, err := m.capture(ctx, settings.IntegrationTime)
	if err != nil || !ok {
		return err
	}
	sp = sp.WithMode(spectrostation.ModeRaw)

	// Live reflectance preview only when the references allow it; otherwise
	// the raw trace keeps updating.
	if settings.CollectionMode == spectrostation.ModeReflectance &&
		m.deps.References.Validity(settings.IntegrationTime).OK() {
		refl, err := m.computeReflectance(sp.WithMode(spectrostation.ModeReflectance))
		if err != nil {
			return err
		}
		sp = refl
	}

	m.deps.Display.Show(displayLabel(sp), sp)
	return nil
}

// ----------- Calibrate menu -----------

func (m *Machine) handleCalibrateMenu(ctx context.Context, in Input) error {
	switch in {
	case InputUp:
		m.cursor = (m.cursor + len(menuItems) - 1) % len(menuItems)
	case InputDown:
		m.cursor = (m.cursor + 1) % len(menuItems)
	case InputBack:
		m.state = StateLiveView
	case InputEnter:
		switch m.cursor {
		case menuDark:
			m.state = StateDarkSetup
		case menuWhite:
			m.state = StateWhiteSetup
		case menuAutoInteg:
			return m.enterAutoIntegSetup(ctx)
		}
	}
	return nil
}

// ----------- Dark / white setup -----------

func (m *Machine) handleReferenceSetup(ctx context.Context, in Input, kind spectrostation.CaptureKind) error {
	switch in {
	case InputBack:
		m.state = StateCalibrateMenu
	case InputEnter:
		return m.freezeReference(ctx, kind)
	}
	return nil
}

func (m *Machine) freezeReference(ctx context.Context, kind spectrostation.CaptureKind) error {
	settings, err := m.deps.Settings.Current(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	m.clearPending()

	sp, ok, err := m.capture(ctx, settings.IntegrationTime)
	if err != nil || !ok {
		return err
	}
	sp = sp.WithKind(kind)

	m.frozen = &frozen{kind: kind, spectrum: sp}
	m.state = StateFrozenView
	m.deps.Display.Show(displayLabel(sp), sp)
	return nil
}

// ----------- Frozen review -----------

func (m *Machine) handleFrozenView(ctx context.Context, in Input) error {
	if m.frozen == nil {
		m.state = StateLiveView
		return nil
	}
	switch in {
	case InputEnter:
		return m.saveFrozen(ctx)
	case InputBack:
		m.discardFrozen(ctx)
	}
	return nil
}

func (m *Machine) saveFrozen(ctx context.Context) error {
	fr := m.frozen
	if err := m.deps.Sink.SaveSpectrum(ctx, fr.spectrum); err != nil {
		return fmt.Errorf("persist %s capture: %w", fr.kind, err)
	}

	switch fr.kind {
	case spectrostation.KindDark:
		m.deps.References.SetDark(fr.spectrum)
		m.deps.Events.Record(ctx, EventCalibration, "dark reference committed",
			map[string]any{"integration_us": fr.spectrum.Integration.Microseconds()})
	case spectrostation.KindWhite:
		m.deps.References.SetWhite(fr.spectrum)
		m.deps.Events.Record(ctx, EventCalibration, "white reference committed",
			map[string]any{"integration_us": fr.spectrum.Integration.Microseconds()})
	default:
		m.deps.Events.Record(ctx, EventCapture, "capture saved",
			map[string]any{"kind": fr.kind, "mode": fr.spectrum.Mode})
	}

	m.frozen = nil
	m.state = StateLiveView
	return nil
}

// discardFrozen returns to the screen the capture was taken from.
func (m *Machine) discardFrozen(_ context.Context) {
	kind := m.frozen.kind
	m.frozen = nil
	switch kind {
	case spectrostation.KindDark:
		m.state = StateDarkSetup
	case spectrostation.KindWhite:
		m.state = StateWhiteSetup
	default:
		m.state = StateLiveView
	}
}

// ----------- Auto-integration workflow -----------

// enterAutoIntegSetup creates a fresh session; whatever frozen or pending data
// existed before is gone.
func (m *Machine) enterAutoIntegSetup(ctx context.Context) error {
	settings, err := m.deps.Settings.Current(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	m.clearPending()
	m.session = autointeg.NewSession(m.deps.Controller, m.limits, settings.IntegrationTime)
	m.state = StateAutoIntegSetup
	return nil
}

func (m *Machine) handleAutoIntegSetup(ctx context.Context, in Input) error {
	switch in {
	case InputBack:
		m.session = nil
		m.state = StateCalibrateMenu
	case InputEnter:
		// Start resets the controller to iteration zero at the currently
		// configured time.
		settings, err := m.deps.Settings.Current(ctx)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		m.session = autointeg.NewSession(m.deps.Controller, m.limits, settings.IntegrationTime)
		m.state = StateAutoIntegRunning
		m.deps.Events.Record(ctx, EventAutoInteg, "auto-integration started",
			map[string]any{"start_us": settings.IntegrationTime.Microseconds()})
	}
	return nil
}

func (m *Machine) handleAutoIntegRunning(ctx context.Context, in Input) error {
	if in == InputBack { // cancel
		m.session = nil
		m.state = StateCalibrateMenu
		m.deps.Events.Record(ctx, EventAutoInteg, "auto-integration cancelled", nil)
	}
	return nil
}

func (m *Machine) tickAutoInteg(ctx context.Context) error {
	if m.session == nil {
		m.state = StateCalibrateMenu
		return nil
	}

	status, err := m.session.Step(ctx, m.deps.Device)
	if sp, ok := m.session.LastSpectrum(); ok {
		m.deps.Display.Show(displayLabel(sp), sp)
	}

	if status.Terminal() {
		m.state = StateAutoIntegConfirm
		meta := map[string]any{
			"status":     status.String(),
			"iterations": m.session.Iterations(),
			"pending_us": m.session.PendingResult().Microseconds(),
		}
		typ := EventAutoInteg
		if status == autointeg.StatusCaptureError {
			typ = EventError
		}
		m.deps.Events.Record(ctx, typ, "auto-integration finished: "+status.String(), meta)
	}
	return err
}

func (m *Machine) handleAutoIntegConfirm(ctx context.Context, in Input) error {
	if m.session == nil {
		m.state = StateLiveView
		return nil
	}
	switch in {
	case InputEnter:
		return m.applyAutoInteg(ctx)
	case InputBack:
		m.session = nil
		m.state = StateCalibrateMenu
		m.deps.Events.Record(ctx, EventAutoInteg, "auto-integration result discarded", nil)
	}
	return nil
}

// applyAutoInteg commits the pending candidate as the configured integration
// time (the settings store clamps and aligns) and persists the final preview.
func (m *Machine) applyAutoInteg(ctx context.Context) error {
	pending := m.session.PendingResult()
	if pending <= 0 {
		// A capture error before any successful exposure leaves nothing to
		// apply; treat like a discard back to live view.
		m.session = nil
		m.state = StateLiveView
		return nil
	}

	applied, err := m.deps.Settings.SetIntegrationTime(ctx, pending)
	if err != nil {
		return fmt.Errorf("commit integration time: %w", err)
	}
	if sp, ok := m.session.LastSpectrum(); ok {
		if err := m.deps.Sink.SaveSpectrum(ctx, sp); err != nil {
			return fmt.Errorf("persist auto-integration result: %w", err)
		}
	}
	m.deps.Events.Record(ctx, EventAutoInteg, "auto-integration result applied",
		map[string]any{"applied_us": applied.Microseconds()})

	m.session = nil
	m.state = StateLiveView
	return nil
}

// ----------- Shared helpers -----------

// capture performs one exposure at the hardware-clamped time. ErrNotReady is
// reported as a clean no-op (ok=false) rather than an error.
func (m *Machine) capture(ctx context.Context, integration time.Duration) (spectrostation.Spectrum, bool, error) {
	sp, err := m.deps.Device.Capture(ctx, m.limits.ClampIntegration(integration))
	if err != nil {
		if errors.Is(err, device.ErrNotReady) {
			m.blockReason = "device not ready"
			return spectrostation.Spectrum{}, false, nil
		}
		m.deps.Events.Record(ctx, EventError, "capture failed: "+err.Error(), nil)
		return spectrostation.Spectrum{}, false, fmt.Errorf("capture: %w", err)
	}
	return sp, true, nil
}

func (m *Machine) computeReflectance(target spectrostation.Spectrum) (spectrostation.Spectrum, error) {
	dark, _ := m.deps.References.Dark()
	white, _ := m.deps.References.White()
	refl, err := spectral.Reflectance(target, dark, white, spectral.DefaultEpsilon, spectral.DefaultCeiling)
	if err != nil {
		return spectrostation.Spectrum{}, err
	}
	return refl.WithKind(target.Kind), nil
}

// clearPending drops the frozen capture and any session in one place, keeping
// the at-most-one-pending invariant.
func (m *Machine) clearPending() {
	m.frozen = nil
	m.session = nil
}

func displayLabel(sp spectrostation.Spectrum) string {
	switch sp.Kind {
	case spectrostation.KindDark:
		return "DARK"
	case spectrostation.KindWhite:
		return "WHITE"
	case spectrostation.KindAutoIntegResult:
		return "AUTOINTEG"
	default:
		if sp.Mode == spectrostation.ModeReflectance {
			return "REFLECTANCE"
		}
		return "RAW"
	}
}

// ----------- Snapshot -----------

// FrozenInfo summarizes the pending capture for display surfaces.
type FrozenInfo struct {
	Kind        spectrostation.CaptureKind    `json:"kind"`
	Mode        spectrostation.CollectionMode `json:"mode,omitempty"`
	CapturedAt  time.Time                     `json:"captured_at"`
	Integration time.Duration                 `json:"integration_ns"`
	Peak        float64                       `json:"peak"`
}

// Snapshot is the read-only view of the workflow.
type Snapshot struct {
	Screen       State           `json:"screen"`
	MenuCursor   string          `json:"menu_cursor,omitempty"`
	DisplayScale float64         `json:"display_scale"`
	Frozen       *FrozenInfo     `json:"frozen,omitempty"`
	Session      *autointeg.Info `json:"session,omitempty"`
	References   spectral.Status `json:"references"`
	BlockReason  string          `json:"block_reason,omitempty"`
}

// Snapshot captures the current workflow state for monitoring.
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		Screen:       m.state,
		DisplayScale: m.scale,
		References:   m.deps.References.Status(),
		BlockReason:  m.blockReason,
	}
	if m.state == StateCalibrateMenu {
		snap.MenuCursor = menuItems[m.cursor]
	}
	if m.frozen != nil {
		snap.Frozen = &FrozenInfo{
			Kind:        m.frozen.kind,
			Mode:        m.frozen.spectrum.Mode,
			CapturedAt:  m.frozen.spectrum.CapturedAt,
			Integration: m.frozen.spectrum.Integration,
			Peak:        spectral.Peak(m.frozen.spectrum),
		}
	}
	if m.session != nil {
		info := m.session.Info()
		snap.Session = &info
	}
	return snap
}

// FrozenSpectrum returns the pending capture, if any.
func (m *Machine) FrozenSpectrum() (spectrostation.Spectrum, bool) {
	if m.frozen == nil {
		return spectrostation.Spectrum{}, false
	}
	return m.frozen.spectrum, true
}
