package api

import (
	"errors"
	"strings"

	"github.com/alert006/new-bollinger-scanner/internal/domain/models"
	"github.com/alert006/new-bollinger-scanner/internal/handler/ws"
	"github.com/alert006/new-bollinger-scanner/internal/services/bands"
	"github.com/alert006/new-bollinger-scanner/internal/usecase"
	xhttp "github.com/alert006/new-bollinger-scanner/pkg/http"
	xlogger "github.com/alert006/new-bollinger-scanner/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ScannerHandler exposes the scan and band-series endpoints.
type ScannerHandler struct {
	logger      *xlogger.Logger
	scanner     *usecase.Scanner
	series      *usecase.BandSeriesUseCase
	hub         *ws.Hub
	instruments []string
	cfg         usecase.ScanConfig
}

func NewScannerHandler(logger *xlogger.Logger, scanner *usecase.Scanner, series *usecase.BandSeriesUseCase, hub *ws.Hub, instruments []string, cfg usecase.ScanConfig) *ScannerHandler {
	return &ScannerHandler{
		logger:      logger,
		scanner:     scanner,
		series:      series,
		hub:         hub,
		instruments: instruments,
		cfg:         cfg,
	}
}

func (h *ScannerHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/scan", h.Scan)
	g.POST("/scan", h.Scan)
	g.GET("/bands", h.Bands)
	e.GET("/ws", h.hub.Handle)
	e.GET("/healthz", h.Health)
}

// Scan runs an on-demand batch scan. The instruments query parameter
// (comma-separated) overrides the configured universe.
func (h *ScannerHandler) Scan(c echo.Context) error {
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	instruments := h.instruments
	if req.Instruments != "" {
		instruments = splitInstruments(req.Instruments)
	}

	report := h.scanner.Scan(c.Request().Context(), instruments, h.cfg)
	h.hub.Broadcast(report)

	return xhttp.SuccessResponse(c, map[string]interface{}{
		"report":   report,
		"rendered": report.Render(),
	})
}

// Bands returns the full band series of one instrument for charting.
func (h *ScannerHandler) Bands(c echo.Context) error {
	req := &models.BandsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.series.GetBandSeries(c.Request().Context(), usecase.GetBandSeriesParams{
		Instrument:    req.Instrument,
		Window:        req.Window,
		StdMultiplier: req.StdMultiplier,
		Lookback:      req.Lookback,
		Interval:      req.Interval,
		From:          req.From,
		To:            req.To,
	})
	if err != nil {
		if errors.Is(err, bands.ErrInsufficientData) {
			return xhttp.BadRequestResponse(c, xhttp.BadRequestError(err.Error()))
		}
		h.logger.Error("band series usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.SuccessResponse(c, res)
}

// Health reports liveness.
func (h *ScannerHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func splitInstruments(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
