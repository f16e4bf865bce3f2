package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alert006/new-bollinger-scanner/internal/domain/models"
	domrepo "github.com/alert006/new-bollinger-scanner/internal/domain/repository"
	applogger "github.com/alert006/new-bollinger-scanner/pkg/logger"
)

type fakeSource struct {
	fetch func(ctx context.Context, instrument string) (models.PriceSeries, error)
}

func (f *fakeSource) Fetch(ctx context.Context, instrument string, _ domrepo.Lookback, _ domrepo.Interval) (models.PriceSeries, error) {
	return f.fetch(ctx, instrument)
}

type noopMetrics struct{}

func (noopMetrics) RecordScan(int, int, float64)   {}
func (noopMetrics) RecordSignal(string, string)    {}
func (noopMetrics) RecordScanError(string)         {}
func (noopMetrics) RecordFetchLatency(float64)     {}
func (noopMetrics) RecordLastPctB(string, float64) {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testConfig() ScanConfig {
	return ScanConfig{
		Window:        20,
		StdMultiplier: 2,
		LowThreshold:  0.05,
		HighThreshold: 0.95,
		Lookback:      "6mo",
		Interval:      domrepo.Interval1d,
		Workers:       4,
	}
}

func flatSeries(n int, close float64) models.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(models.PriceSeries, n)
	for i := range s {
		s[i] = models.PricePoint{Timestamp: start.AddDate(0, 0, i), Close: close}
	}
	return s
}

func oversoldSeries() models.PriceSeries {
	s := flatSeries(20, 100)
	s = append(s, models.PricePoint{
		Timestamp: s[len(s)-1].Timestamp.AddDate(0, 0, 1),
		Close:     50,
	})
	return s
}

func overboughtSeries() models.PriceSeries {
	s := flatSeries(20, 100)
	s = append(s, models.PricePoint{
		Timestamp: s[len(s)-1].Timestamp.AddDate(0, 0, 1),
		Close:     150,
	})
	return s
}

func newTestScanner(t *testing.T, src domrepo.PriceSource) *Scanner {
	t.Helper()
	return NewScanner(src, nil, noopMetrics{}, testLogger(t))
}

func TestScanFaultIsolation(t *testing.T) {
	src := &fakeSource{fetch: func(_ context.Context, instrument string) (models.PriceSeries, error) {
		switch instrument {
		case "A":
			return oversoldSeries(), nil
		case "B":
			return nil, fmt.Errorf("connection refused")
		default:
			return overboughtSeries(), nil
		}
	}}

	report := newTestScanner(t, src).Scan(context.Background(), []string{"A", "B", "C"}, testConfig())

	if len(report.Signals) != 2 {
		t.Fatalf("expected 2 signals, got %d: %+v", len(report.Signals), report.Signals)
	}
	if report.Signals[0].Instrument != "A" || report.Signals[0].Kind != models.SignalBuy {
		t.Fatalf("unexpected first signal: %+v", report.Signals[0])
	}
	if report.Signals[1].Instrument != "C" || report.Signals[1].Kind != models.SignalSell {
		t.Fatalf("unexpected second signal: %+v", report.Signals[1])
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected exactly 1 error, got %d: %+v", len(report.Errors), report.Errors)
	}
	e := report.Errors[0]
	if e.Instrument != "B" || e.Kind != models.ErrorFetchFailed {
		t.Fatalf("unexpected error entry: %+v", e)
	}
}

func TestScanPreservesConfigOrder(t *testing.T) {
	// Later instruments finish first; output order must still match input.
	instruments := []string{"I0", "I1", "I2", "I3", "I4", "I5", "I6", "I7"}
	src := &fakeSource{fetch: func(_ context.Context, instrument string) (models.PriceSeries, error) {
		delay := time.Duration(len(instruments)-int(instrument[1]-'0')) * 5 * time.Millisecond
		time.Sleep(delay)
		return oversoldSeries(), nil
	}}

	report := newTestScanner(t, src).Scan(context.Background(), instruments, testConfig())

	if len(report.Signals) != len(instruments) {
		t.Fatalf("expected %d signals, got %d", len(instruments), len(report.Signals))
	}
	for i, sig := range report.Signals {
		if sig.Instrument != instruments[i] {
			t.Fatalf("signal %d out of order: got %s want %s", i, sig.Instrument, instruments[i])
		}
	}
}

func TestScanInsufficientData(t *testing.T) {
	src := &fakeSource{fetch: func(_ context.Context, instrument string) (models.PriceSeries, error) {
		if instrument == "SHORT" {
			return flatSeries(10, 100), nil
		}
		return oversoldSeries(), nil
	}}

	report := newTestScanner(t, src).Scan(context.Background(), []string{"SHORT", "OK"}, testConfig())

	if len(report.Errors) != 1 || report.Errors[0].Kind != models.ErrorInsufficientData {
		t.Fatalf("expected one InsufficientData error, got %+v", report.Errors)
	}
	if len(report.Signals) != 1 || report.Signals[0].Instrument != "OK" {
		t.Fatalf("other instruments must still produce signals: %+v", report.Signals)
	}
}

func TestScanNeutralProducesNoSignal(t *testing.T) {
	src := &fakeSource{fetch: func(_ context.Context, _ string) (models.PriceSeries, error) {
		return flatSeries(25, 100), nil
	}}

	report := newTestScanner(t, src).Scan(context.Background(), []string{"FLAT"}, testConfig())

	if len(report.Signals) != 0 || len(report.Errors) != 0 {
		t.Fatalf("flat series must be neutral: %+v", report)
	}
	if report.Render() != models.NoSignalsMessage {
		t.Fatalf("expected sentinel rendering, got %q", report.Render())
	}
}

func TestScanEmptyInstrumentList(t *testing.T) {
	src := &fakeSource{fetch: func(_ context.Context, _ string) (models.PriceSeries, error) {
		t.Fatalf("fetch must not be called for an empty scan")
		return nil, nil
	}}

	report := newTestScanner(t, src).Scan(context.Background(), nil, testConfig())
	if len(report.Signals) != 0 || len(report.Errors) != 0 {
		t.Fatalf("empty scan must return an empty report: %+v", report)
	}
	if report.GeneratedAt.IsZero() {
		t.Fatalf("report must carry a generation timestamp")
	}
}

func TestScanRecoversPanics(t *testing.T) {
	src := &fakeSource{fetch: func(_ context.Context, instrument string) (models.PriceSeries, error) {
		if instrument == "BOOM" {
			panic("corrupted frame")
		}
		return oversoldSeries(), nil
	}}

	report := newTestScanner(t, src).Scan(context.Background(), []string{"BOOM", "OK"}, testConfig())

	if len(report.Errors) != 1 || report.Errors[0].Kind != models.ErrorCalculationFailed {
		t.Fatalf("expected CalculationFailed for the panicking instrument, got %+v", report.Errors)
	}
	if len(report.Signals) != 1 || report.Signals[0].Instrument != "OK" {
		t.Fatalf("panic must not abort the batch: %+v", report.Signals)
	}
}

func TestScanDeadlineReturnsPartialResults(t *testing.T) {
	src := &fakeSource{fetch: func(ctx context.Context, instrument string) (models.PriceSeries, error) {
		if instrument == "SLOW" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return oversoldSeries(), nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	cfg := testConfig()
	cfg.Workers = 2
	report := newTestScanner(t, src).Scan(ctx, []string{"FAST", "SLOW"}, cfg)

	if len(report.Signals) != 1 || report.Signals[0].Instrument != "FAST" {
		t.Fatalf("fast instrument must still report: %+v", report.Signals)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected one timeout error, got %+v", report.Errors)
	}
	e := report.Errors[0]
	if e.Instrument != "SLOW" || e.Kind != models.ErrorFetchFailed || e.Detail != "timeout" {
		t.Fatalf("expected FetchFailed timeout for slow instrument, got %+v", e)
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := testConfig()
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := cfg
	bad.Window = 1
	if err := ValidateConfig(bad); err == nil {
		t.Fatalf("expected error for window < 2")
	}

	bad = cfg
	bad.StdMultiplier = 0
	if err := ValidateConfig(bad); err == nil {
		t.Fatalf("expected error for zero multiplier")
	}

	bad = cfg
	bad.LowThreshold = 0.96
	if err := ValidateConfig(bad); err == nil {
		t.Fatalf("expected error for inverted thresholds")
	}
}
