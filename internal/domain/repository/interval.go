package repository

import (
	"fmt"
	"strconv"
	"time"
)

// Interval represents candle resolution buckets offered by the provider.
type Interval string

const (
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
)

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	switch iv {
	case Interval1h, Interval1d, Interval1wk:
		return true
	default:
		return false
	}
}

// DefaultInterval returns the default candle resolution.
func DefaultInterval() Interval { return Interval1d }

// NormalizeInterval converts a raw string to a valid interval (or default).
func NormalizeInterval(s string) Interval {
	if s == "" {
		return DefaultInterval()
	}
	iv := Interval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return DefaultInterval()
}

// Lookback is a provider-style history range such as "10d", "6mo", "1y".
type Lookback string

// DefaultLookback covers six months of daily candles.
func DefaultLookback() Lookback { return "6mo" }

// Duration converts the lookback to an approximate time.Duration
// (calendar months and years use 30 and 365 days).
func (l Lookback) Duration() (time.Duration, error) {
	s := string(l)
	if len(s) < 2 {
		return 0, fmt.Errorf("lookback %q too short", s)
	}
	unit := s[len(s)-1:]
	num := s[:len(s)-1]
	if unit == "o" && len(s) >= 3 { // "mo"
		unit = "mo"
		num = s[:len(s)-2]
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("lookback %q: bad count", s)
	}
	day := 24 * time.Hour
	switch unit {
	case "d":
		return time.Duration(n) * day, nil
	case "w":
		return time.Duration(n) * 7 * day, nil
	case "mo":
		return time.Duration(n) * 30 * day, nil
	case "y":
		return time.Duration(n) * 365 * day, nil
	default:
		return 0, fmt.Errorf("lookback %q: unknown unit", s)
	}
}

// NormalizeLookback returns l if parseable, the default otherwise.
func NormalizeLookback(s string) Lookback {
	if s == "" {
		return DefaultLookback()
	}
	l := Lookback(s)
	if _, err := l.Duration(); err != nil {
		return DefaultLookback()
	}
	return l
}
