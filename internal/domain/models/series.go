package models

import "time"

// PricePoint is one closing-price observation.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Close     float64   `json:"close"`
}

// PriceSeries is the chronological closing-price history of one instrument.
// Entries are strictly increasing in time with no duplicate timestamps;
// the series is immutable once fetched.
type PriceSeries []PricePoint

// Last returns the most recent point and true, or false for an empty series.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// Between returns the subsequence with timestamps in [from, to]. Zero bounds
// are open on that side.
func (s PriceSeries) Between(from, to time.Time) PriceSeries {
	out := make(PriceSeries, 0, len(s))
	for _, p := range s {
		if !from.IsZero() && p.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && p.Timestamp.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// BandPoint is the volatility band value at one series index. Upper >= Middle
// >= Lower always holds; all three coincide when trailing volatility is zero.
type BandPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Middle    float64   `json:"middle"`
	Upper     float64   `json:"upper"`
	Lower     float64   `json:"lower"`
	PctB      float64   `json:"pct_b"`
}
