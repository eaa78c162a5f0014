package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"spectrostation/internal/repository"
	"spectrostation/internal/service"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK       = "ok"
	statusAccepted = "accepted"
	statusUpdated  = "updated"

	errStationInput    = "failed to apply input"
	errStationState    = "failed to load station state"
	errListSpectra     = "failed to list spectra"
	errGetSettings     = "failed to load settings"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and include the station state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	st, err := h.services.Station.Snapshot(ctx)
	if err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// Request DTO for a station input.
type inputRequest struct {
	Input string `json:"input" binding:"required"` // enter | back | up | down
}

// StationInputRequest is an exported model for Swagger docs of the input payload.
type StationInputRequest struct {
	// Input to dispatch. Allowed: enter, back, up, down
	Input string `json:"input" example:"enter"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Dispatch a user input
// @Description  Sends one discrete action (enter/back/up/down) to the active screen
// @Tags         station
// @Accept       json
// @Produce      json
// @Param        body  body   StationInputRequest  true  "Input payload"
// @Success      200   {object}  map[string]interface{}  "status, state"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/station/input [post]
// @Security     BearerAuth
func (h *Handler) stationInput(c *gin.Context) {
	var req inputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.services.Station.HandleInput(ctx, req.Input); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errStationInput, "station_input_failed", err, "input", req.Input)
		return
	}
	h.respondWithStatusAndState(c, statusAccepted, gin.H{"input": req.Input})
}

// @Summary      Get station state
// @Description  Active screen, session status, reference status and settings
// @Tags         station
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/station/state [get]
// @Security     BearerAuth
func (h *Handler) stationState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Station.Snapshot(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errStationState, "station_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Get the displayable spectrum
// @Description  Latest spectrum emitted to the rendering collaborator, with label
// @Tags         station
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "label, spectrum"
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/station/spectrum [get]
// @Security     BearerAuth
func (h *Handler) stationSpectrum(c *gin.Context) {
	label, sp := h.services.Station.LatestDisplay()
	if sp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no spectrum displayed yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"label": label, "spectrum": sp})
}

// @Summary      List committed captures
// @Tags         spectra
// @Produce      json
// @Param        limit  query  int  false  "Max rows (newest first)"
// @Success      200  {object}  map[string]interface{}  "count, spectra"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/spectra [get]
// @Security     BearerAuth
func (h *Handler) listSpectra(c *gin.Context) {
	ctx := c.Request.Context()
	limit := 0
	if qs := c.Query("limit"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			limit = v
		}
	}
	spectra, err := h.services.Spectra.List(ctx, limit)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListSpectra, "spectra_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(spectra),
		"spectra": spectra,
	})
}

// @Summary      Get one capture
// @Tags         spectra
// @Produce      json
// @Param        id  path  string  true  "Spectrum ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/spectra/{id} [get]
// @Security     BearerAuth
func (h *Handler) getSpectrum(c *gin.Context) {
	ctx := c.Request.Context()
	sp, err := h.services.Spectra.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrSpectrumNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "spectrum not found"})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load spectrum", "spectrum_get_failed", err, "id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, sp)
}

// Request DTO for updating settings.
type settingsRequest struct {
	CollectionMode    string `json:"collection_mode,omitempty"`     // RAW | REFLECTANCE
	IntegrationTimeUS int64  `json:"integration_time_us,omitempty"` // microseconds
}

// UpdateSettingsRequest is an exported model for Swagger docs of the settings payload.
type UpdateSettingsRequest struct {
	// Collection mode. Allowed: RAW, REFLECTANCE
	CollectionMode string `json:"collection_mode,omitempty" example:"REFLECTANCE"`
	// Integration time in microseconds (clamped and increment-aligned)
	IntegrationTimeUS int64 `json:"integration_time_us,omitempty" example:"250000"`
}

// @Summary      Get settings
// @Tags         settings
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/settings [get]
// @Security     BearerAuth
func (h *Handler) getSettings(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Settings.Get(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetSettings, "settings_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Update settings
// @Description  Partial update; the stored integration time is hardware-clamped and increment-aligned
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body   UpdateSettingsRequest  true  "Settings payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/settings [put]
// @Security     BearerAuth
func (h *Handler) updateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	st, err := h.services.Settings.Update(ctx, service.SettingsParams{
		CollectionMode:  req.CollectionMode,
		IntegrationTime: time.Duration(req.IntegrationTimeUS) * time.Microsecond,
	})
	if err != nil {
		if h.log != nil {
			h.log.Errorw("settings_update_failed", "err", err, "mode", req.CollectionMode)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusUpdated, "settings": st})
}
