package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	domrepo "github.com/alert006/new-bollinger-scanner/internal/domain/repository"
	applogger "github.com/alert006/new-bollinger-scanner/pkg/logger"
)

// ScanRequestHandler consumes scan-request messages and publishes the
// resulting reports. Requests are idempotent snapshots, so redelivery is
// harmless.
type ScanRequestHandler struct {
	topic       string
	scanner     *Scanner
	publisher   domrepo.ReportPublisher
	instruments []string
	cfg         ScanConfig
	log         *applogger.Logger
}

func NewScanRequestHandler(topic string, scanner *Scanner, publisher domrepo.ReportPublisher, instruments []string, cfg ScanConfig, log *applogger.Logger) *ScanRequestHandler {
	return &ScanRequestHandler{
		topic:       topic,
		scanner:     scanner,
		publisher:   publisher,
		instruments: instruments,
		cfg:         cfg,
		log:         log,
	}
}

func (h *ScanRequestHandler) Topic() string { return h.topic }

// incoming message schema: {"instruments": ["RELIANCE.NS", ...]}; an empty or
// missing list scans the configured universe.
func (h *ScanRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req struct {
		Instruments []string `json:"instruments"`
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &req); err != nil {
			return fmt.Errorf("unmarshal scan request: %w", err)
		}
	}

	instruments := req.Instruments
	if len(instruments) == 0 {
		instruments = h.instruments
	}

	report := h.scanner.Scan(ctx, instruments, h.cfg)
	if err := h.publisher.Publish(ctx, report); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}

	h.log.Info("scan request handled",
		applogger.Int("instruments", len(instruments)),
		applogger.Int("signals", len(report.Signals)),
	)
	return nil
}
