package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	scansTotal    prometheus.Counter
	signalsTotal  *prometheus.CounterVec
	scanErrors    *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	fetchDuration prometheus.Histogram
	lastPctB      *prometheus.GaugeVec
	lastScanSize  *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		scansTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bollscan_scans_total",
				Help: "Total number of completed batch scans",
			},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bollscan_signals_total",
				Help: "Total number of emitted buy/sell signals",
			},
			[]string{"instrument", "kind"},
		),
		scanErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bollscan_scan_errors_total",
				Help: "Per-instrument scan errors by kind",
			},
			[]string{"kind"},
		),
		scanDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bollscan_scan_duration_seconds",
				Help:    "Wall-clock duration of a full batch scan",
				Buckets: prometheus.DefBuckets,
			},
		),
		fetchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bollscan_fetch_duration_seconds",
				Help:    "Duration of provider fetches",
				Buckets: prometheus.DefBuckets,
			},
		),
		lastPctB: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bollscan_last_pct_b",
				Help: "Most recent %B value per instrument",
			},
			[]string{"instrument"},
		),
		lastScanSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bollscan_last_scan_size",
				Help: "Signal and error counts of the most recent scan",
			},
			[]string{"outcome"},
		),
	}
}

// RecordScan records the outcome of one completed batch scan.
func (r *Recorder) RecordScan(signals, errs int, seconds float64) {
	r.scansTotal.Inc()
	r.scanDuration.Observe(seconds)
	r.lastScanSize.WithLabelValues("signals").Set(float64(signals))
	r.lastScanSize.WithLabelValues("errors").Set(float64(errs))
}

// RecordSignal records an emitted signal.
func (r *Recorder) RecordSignal(instrument, kind string) {
	r.signalsTotal.WithLabelValues(instrument, kind).Inc()
}

// RecordScanError records a per-instrument failure.
func (r *Recorder) RecordScanError(kind string) {
	r.scanErrors.WithLabelValues(kind).Inc()
}

// RecordFetchLatency records a provider fetch duration in seconds.
func (r *Recorder) RecordFetchLatency(seconds float64) {
	r.fetchDuration.Observe(seconds)
}

// RecordLastPctB records the latest %B per instrument.
func (r *Recorder) RecordLastPctB(instrument string, pctB float64) {
	r.lastPctB.WithLabelValues(instrument).Set(pctB)
}
