package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alert006/new-bollinger-scanner/internal/domain/models"
	domrepo "github.com/alert006/new-bollinger-scanner/internal/domain/repository"
	"github.com/alert006/new-bollinger-scanner/internal/services/bands"
	applogger "github.com/alert006/new-bollinger-scanner/pkg/logger"
)

// ScanConfig carries the per-scan parameters. It is explicit input to Scan,
// never global state, so two scans with different configs can run in one
// process.
type ScanConfig struct {
	Window               int
	StdMultiplier        float64
	LowThreshold         float64
	HighThreshold        float64
	Lookback             domrepo.Lookback
	Interval             domrepo.Interval
	Workers              int
	FetchDelay           time.Duration
	PerInstrumentTimeout time.Duration
}

// Scanner runs batch scans: fetch each instrument's history, compute bands,
// classify the latest point, and aggregate everything into one report.
// Failures stay local to their instrument.
type Scanner struct {
	source  domrepo.PriceSource
	store   domrepo.CandleStore // optional, best-effort persistence
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewScanner(source domrepo.PriceSource, store domrepo.CandleStore, metrics domrepo.Metrics, log *applogger.Logger) *Scanner {
	return &Scanner{source: source, store: store, metrics: metrics, log: log}
}

// outcome is one instrument's result, written only by the worker that owns
// the slot. Exactly one of signal/scanErr is set, or neither for neutral.
type outcome struct {
	signal  *models.Signal
	scanErr *models.ScanError
}

// ValidateConfig surfaces structural config errors before any scan starts.
// An empty instrument list is not an error; scanning nothing yields an empty
// report.
func ValidateConfig(cfg ScanConfig) error {
	if cfg.Window < 2 {
		return fmt.Errorf("scan config: window must be >= 2, got %d", cfg.Window)
	}
	if !(cfg.StdMultiplier > 0) {
		return fmt.Errorf("scan config: std multiplier must be > 0, got %v", cfg.StdMultiplier)
	}
	if cfg.LowThreshold < 0 || cfg.LowThreshold >= 1 || cfg.HighThreshold <= 0 || cfg.HighThreshold > 1 || cfg.LowThreshold >= cfg.HighThreshold {
		return fmt.Errorf("scan config: thresholds must satisfy 0 <= low < high <= 1, got %v/%v", cfg.LowThreshold, cfg.HighThreshold)
	}
	return nil
}

// Scan processes the instruments in their given order and always returns a
// report: per-instrument failures are recorded, never propagated. The context
// deadline bounds the whole batch; instruments that do not finish in time are
// reported as fetch timeouts.
func (s *Scanner) Scan(ctx context.Context, instruments []string, cfg ScanConfig) *models.ScanReport {
	start := time.Now()

	engine, err := bands.NewEngine(cfg.Window, cfg.StdMultiplier)
	if err != nil {
		// Structural errors are caught by ValidateConfig before scheduling;
		// reaching this point means the caller skipped validation.
		return s.configErrorReport(instruments, err)
	}
	classifier, err := bands.NewClassifier(cfg.LowThreshold, cfg.HighThreshold)
	if err != nil {
		return s.configErrorReport(instruments, err)
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(instruments) {
		workers = len(instruments)
	}

	outcomes := make([]outcome, len(instruments))
	jobs := make(chan int)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.runWorkers(ctx, workers, jobs, instruments, cfg, engine, classifier, outcomes)
	}()

feed:
	for i := range instruments {
		select {
		case jobs <- i:
		case <-ctx.Done():
			// Whatever was not scheduled times out below.
			for j := i; j < len(instruments); j++ {
				if outcomes[j].signal == nil && outcomes[j].scanErr == nil {
					outcomes[j].scanErr = &models.ScanError{
						Instrument: instruments[j],
						Kind:       models.ErrorFetchFailed,
						Detail:     "timeout",
					}
				}
			}
			break feed
		}
	}
	close(jobs)
	<-done

	report := s.assemble(instruments, outcomes)
	s.observe(report, time.Since(start))
	return report
}

func (s *Scanner) runWorkers(ctx context.Context, n int, jobs <-chan int, instruments []string, cfg ScanConfig, engine *bands.Engine, classifier *bands.Classifier, outcomes []outcome) {
	doneCh := make(chan struct{})
	for w := 0; w < n; w++ {
		go func() {
			defer func() { doneCh <- struct{}{} }()
			for i := range jobs {
				outcomes[i] = s.scanOne(ctx, instruments[i], cfg, engine, classifier)
				if cfg.FetchDelay > 0 {
					select {
					case <-time.After(cfg.FetchDelay):
					case <-ctx.Done():
					}
				}
			}
		}()
	}
	for w := 0; w < n; w++ {
		<-doneCh
	}
}

// scanOne fetches and classifies a single instrument. Panics inside the band
// computation are converted to CalculationFailed so one bad series cannot
// take down the batch.
func (s *Scanner) scanOne(ctx context.Context, instrument string, cfg ScanConfig, engine *bands.Engine, classifier *bands.Classifier) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scan panic recovered",
				applogger.String("instrument", instrument),
				applogger.Any("panic", r),
			)
			out = outcome{scanErr: &models.ScanError{
				Instrument: instrument,
				Kind:       models.ErrorCalculationFailed,
				Detail:     fmt.Sprintf("panic: %v", r),
			}}
		}
	}()

	fetchCtx := ctx
	if cfg.PerInstrumentTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, cfg.PerInstrumentTimeout)
		defer cancel()
	}

	fetchStart := time.Now()
	series, err := s.source.Fetch(fetchCtx, instrument, cfg.Lookback, cfg.Interval)
	s.metrics.RecordFetchLatency(time.Since(fetchStart).Seconds())
	if err != nil {
		detail := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			detail = "timeout"
		}
		s.log.Warn("fetch failed",
			applogger.String("instrument", instrument),
			applogger.Error(err),
		)
		return outcome{scanErr: &models.ScanError{
			Instrument: instrument,
			Kind:       models.ErrorFetchFailed,
			Detail:     detail,
		}}
	}

	if s.store != nil {
		if err := s.store.StoreSeries(ctx, instrument, series); err != nil {
			s.log.Warn("candle store failed",
				applogger.String("instrument", instrument),
				applogger.Error(err),
			)
		}
	}

	point, err := engine.Latest(series)
	if err != nil {
		if errors.Is(err, bands.ErrInsufficientData) {
			return outcome{scanErr: &models.ScanError{
				Instrument: instrument,
				Kind:       models.ErrorInsufficientData,
				Detail:     err.Error(),
			}}
		}
		return outcome{scanErr: &models.ScanError{
			Instrument: instrument,
			Kind:       models.ErrorCalculationFailed,
			Detail:     err.Error(),
		}}
	}

	s.metrics.RecordLastPctB(instrument, point.PctB)

	kind := classifier.Classify(point.PctB)
	if kind == models.SignalNeutral {
		return outcome{}
	}

	last, _ := series.Last()
	return outcome{signal: &models.Signal{
		Instrument: instrument,
		Kind:       kind,
		PctB:       point.PctB,
		Close:      last.Close,
		Upper:      point.Upper,
		Lower:      point.Lower,
		Timestamp:  point.Timestamp,
	}}
}

// assemble merges per-worker outcomes in the original instrument order. The
// workers have all finished by now, so no synchronization is needed here.
func (s *Scanner) assemble(instruments []string, outcomes []outcome) *models.ScanReport {
	report := &models.ScanReport{
		Signals:     make([]models.Signal, 0, len(instruments)),
		Errors:      make([]models.ScanError, 0),
		GeneratedAt: time.Now().UTC(),
	}
	for _, o := range outcomes {
		switch {
		case o.signal != nil:
			report.Signals = append(report.Signals, *o.signal)
		case o.scanErr != nil:
			report.Errors = append(report.Errors, *o.scanErr)
		}
	}
	return report
}

func (s *Scanner) configErrorReport(instruments []string, err error) *models.ScanReport {
	report := &models.ScanReport{GeneratedAt: time.Now().UTC()}
	for _, inst := range instruments {
		report.Errors = append(report.Errors, models.ScanError{
			Instrument: inst,
			Kind:       models.ErrorCalculationFailed,
			Detail:     err.Error(),
		})
	}
	return report
}

func (s *Scanner) observe(r *models.ScanReport, elapsed time.Duration) {
	s.metrics.RecordScan(len(r.Signals), len(r.Errors), elapsed.Seconds())
	for _, sig := range r.Signals {
		s.metrics.RecordSignal(sig.Instrument, string(sig.Kind))
	}
	for _, e := range r.Errors {
		s.metrics.RecordScanError(string(e.Kind))
	}
	s.log.Info("scan complete",
		applogger.Int("signals", len(r.Signals)),
		applogger.Int("errors", len(r.Errors)),
		applogger.Duration("duration_ms", elapsed),
	)
}
