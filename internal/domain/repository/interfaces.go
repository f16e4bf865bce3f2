package repository

import (
	"context"

	"github.com/alert006/new-bollinger-scanner/internal/domain/models"
)

// PriceSource fetches the closing-price history of one instrument. A returned
// series is strictly chronological and deduplicated; implementations convert
// any other provider shape into an error.
type PriceSource interface {
	Fetch(ctx context.Context, instrument string, lookback Lookback, interval Interval) (models.PriceSeries, error)
}

// ReportPublisher delivers a completed ScanReport to an external sink
// (message topic, CI output variable, dashboard push).
type ReportPublisher interface {
	Publish(ctx context.Context, r *models.ScanReport) error
	Close() error
}

// CandleStore persists fetched price history. Storage is best-effort from the
// scanner's point of view: a store failure never fails a scan.
type CandleStore interface {
	StoreSeries(ctx context.Context, instrument string, s models.PriceSeries) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records scanner observability signals.
type Metrics interface {
	RecordScan(signals, errs int, seconds float64)
	RecordSignal(instrument, kind string)
	RecordScanError(kind string)
	RecordFetchLatency(seconds float64)
	RecordLastPctB(instrument string, pctB float64)
}
