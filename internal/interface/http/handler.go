package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/weather-screen/internal/domain/screen"
	"github.com/yanqian/weather-screen/internal/domain/weather"
	"github.com/yanqian/weather-screen/internal/infra/config"
)

// ScreenService is the slice of the screen orchestrator the transport drives.
type ScreenService interface {
	State(ctx context.Context) (screen.State, error)
	EditQuery(ctx context.Context, query string) (screen.State, error)
	SelectCandidate(ctx context.Context, index int) (screen.State, error)
	SelectLocation(ctx context.Context, loc weather.Location) (screen.State, error)
	ToggleUnits(ctx context.Context) (screen.State, error)
	Retry(ctx context.Context) (screen.State, error)
}

// Handler wires the HTTP transport to the screen and the weather client.
type Handler struct {
	screen       ScreenService
	weather      weather.Client
	forecastDays int
	logger       *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(cfg *config.Config, screenSvc ScreenService, client weather.Client, logger *slog.Logger) *Handler {
	return &Handler{
		screen:       screenSvc,
		weather:      client,
		forecastDays: cfg.Screen.ForecastDays,
		logger:       logger.With("component", "http.handler"),
	}
}

type queryRequest struct {
	Query *string `json:"query" binding:"required"`
}

type selectionRequest struct {
	Index   *int   `json:"index"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Screen returns the rendered view.
func (h *Handler) Screen(c *gin.Context) {
	h.respond(c, h.screen.State)
}

// EditQuery replaces the search text.
func (h *Handler) EditQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	h.respond(c, func(ctx context.Context) (screen.State, error) {
		return h.screen.EditQuery(ctx, *req.Query)
	})
}

// Select picks a candidate by index, or an explicit location by name.
func (h *Handler) Select(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	switch {
	case req.Index != nil:
		h.respond(c, func(ctx context.Context) (screen.State, error) {
			return h.screen.SelectCandidate(ctx, *req.Index)
		})
	case strings.TrimSpace(req.Name) != "":
		loc := weather.Location{Name: strings.TrimSpace(req.Name), Country: strings.TrimSpace(req.Country)}
		h.respond(c, func(ctx context.Context) (screen.State, error) {
			return h.screen.SelectLocation(ctx, loc)
		})
	default:
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "either index or name is required", nil))
	}
}

// ToggleUnits flips the temperature unit.
func (h *Handler) ToggleUnits(c *gin.Context) {
	h.respond(c, h.screen.ToggleUnits)
}

// Retry re-issues the last failed forecast.
func (h *Handler) Retry(c *gin.Context) {
	h.respond(c, h.screen.Retry)
}

// SearchLocations proxies a single lookup without touching the screen.
func (h *Handler) SearchLocations(c *gin.Context) {
	locations, err := h.weather.FetchLocations(c.Request.Context(), c.Query("q"))
	if err != nil {
		abortWithError(c, fromDomainError(err, "lookup_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

// Forecast proxies a single forecast fetch without touching the screen.
func (h *Handler) Forecast(c *gin.Context) {
	days := h.forecastDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "days must be an integer", err))
			return
		}
		days = parsed
	}

	snap, err := h.weather.FetchForecast(c.Request.Context(), c.Query("city"), days)
	if err != nil {
		abortWithError(c, fromDomainError(err, "forecast_failed"))
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) respond(c *gin.Context, op func(ctx context.Context) (screen.State, error)) {
	state, err := op(c.Request.Context())
	if err != nil {
		abortWithError(c, fromDomainError(err, "screen_failed"))
		return
	}
	c.JSON(http.StatusOK, screen.Render(state))
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
