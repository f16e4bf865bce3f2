package models

import (
	"fmt"
	"strings"
	"time"
)

// SignalKind classifies the latest band observation of an instrument.
type SignalKind string

const (
	SignalBuy     SignalKind = "buy"
	SignalSell    SignalKind = "sell"
	SignalNeutral SignalKind = "neutral"
)

// ErrorKind names the per-instrument failure categories. Every kind is local
// to its instrument; none aborts a batch scan.
type ErrorKind string

const (
	ErrorFetchFailed       ErrorKind = "fetch_failed"
	ErrorInsufficientData  ErrorKind = "insufficient_data"
	ErrorCalculationFailed ErrorKind = "calculation_failed"
)

// Signal is a buy or sell classification produced from the most recent band
// point of one instrument.
type Signal struct {
	Instrument string     `json:"instrument"`
	Kind       SignalKind `json:"kind"`
	PctB       float64    `json:"pct_b"`
	Close      float64    `json:"close"`
	Upper      float64    `json:"upper"`
	Lower      float64    `json:"lower"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ScanError records one instrument's failure during a batch scan.
type ScanError struct {
	Instrument string    `json:"instrument"`
	Kind       ErrorKind `json:"kind"`
	Detail     string    `json:"detail,omitempty"`
}

// ScanReport aggregates one batch scan. Signals and Errors preserve the
// configured instrument order. Built once per scan, immutable afterward.
type ScanReport struct {
	Signals     []Signal    `json:"signals"`
	Errors      []ScanError `json:"errors"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// NoSignalsMessage is rendered when a scan completes with nothing to report.
// It is never empty so consumers can tell "ran, found nothing" from "did not
// run".
const NoSignalsMessage = "No signals found (all instruments within bands)."

// DisplayName strips the exchange suffix ("RELIANCE.NS" -> "RELIANCE").
func DisplayName(instrument string) string {
	if i := strings.LastIndex(instrument, "."); i > 0 {
		return instrument[:i]
	}
	return instrument
}

// Render produces the deterministic human-readable form of the report.
func (r *ScanReport) Render() string {
	var lines []string
	for _, s := range r.Signals {
		lines = append(lines, renderSignal(s))
	}
	for _, e := range r.Errors {
		lines = append(lines, renderError(e))
	}
	if len(r.Signals) == 0 {
		if len(lines) == 0 {
			return NoSignalsMessage
		}
		lines = append([]string{NoSignalsMessage}, lines...)
	}
	return strings.Join(lines, "\n")
}

func renderSignal(s Signal) string {
	name := DisplayName(s.Instrument)
	switch s.Kind {
	case SignalSell:
		premium := 0.0
		if s.Upper != 0 {
			premium = (s.Close - s.Upper) / s.Upper * 100
		}
		return fmt.Sprintf("%s - ABOVE upper band (%+.2f%%) at %.2f, pctB=%.3f (potential sell)",
			name, premium, s.Close, s.PctB)
	case SignalBuy:
		discount := 0.0
		if s.Lower != 0 {
			discount = (s.Lower - s.Close) / s.Lower * 100
		}
		return fmt.Sprintf("%s - BELOW lower band (%+.2f%%) at %.2f, pctB=%.3f (potential buy)",
			name, discount, s.Close, s.PctB)
	default:
		return fmt.Sprintf("%s - pctB=%.3f (neutral)", name, s.PctB)
	}
}

func renderError(e ScanError) string {
	name := DisplayName(e.Instrument)
	switch e.Kind {
	case ErrorFetchFailed:
		if e.Detail != "" {
			return fmt.Sprintf("%s - data unavailable: %s", name, e.Detail)
		}
		return fmt.Sprintf("%s - data unavailable", name)
	case ErrorInsufficientData:
		return fmt.Sprintf("%s - not enough data for band calculation", name)
	default:
		if e.Detail != "" {
			return fmt.Sprintf("%s - calculation failed: %s", name, e.Detail)
		}
		return fmt.Sprintf("%s - calculation failed", name)
	}
}
