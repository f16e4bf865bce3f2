package bands

import (
	"errors"
	"fmt"
	"math"

	"github.com/alert006/new-bollinger-scanner/internal/domain/models"
)

// ErrInsufficientData is returned when a series is shorter than the window.
var ErrInsufficientData = errors.New("bands: series shorter than window")

// Engine computes Bollinger Bands over a closing-price series.
//
// Convention: the standard deviation is the sample deviation (ddof=1) over the
// trailing window, matching the common pandas rolling(...).std() reference.
type Engine struct {
	window        int
	stdMultiplier float64
}

// NewEngine validates parameters and creates an engine. window must be at
// least 2 and stdMultiplier strictly positive; violations are structural
// configuration errors, not per-series failures.
func NewEngine(window int, stdMultiplier float64) (*Engine, error) {
	if window < 2 {
		return nil, fmt.Errorf("bands: window must be >= 2, got %d", window)
	}
	if !(stdMultiplier > 0) || math.IsInf(stdMultiplier, 0) {
		return nil, fmt.Errorf("bands: std multiplier must be > 0, got %v", stdMultiplier)
	}
	return &Engine{window: window, stdMultiplier: stdMultiplier}, nil
}

// Window returns the configured trailing window length.
func (e *Engine) Window() int { return e.window }

// Compute returns one BandPoint per series index i >= window-1, aligned with
// the input. Only trailing data enters a band value, so no future observation
// can leak into an earlier point. The rolling sum and sum-of-squares make the
// pass O(n) while matching the naive per-window recompute.
func (e *Engine) Compute(series models.PriceSeries) ([]models.BandPoint, error) {
	if len(series) < e.window {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(series), e.window)
	}

	w := float64(e.window)
	out := make([]models.BandPoint, 0, len(series)-e.window+1)
	var sum, sumSq float64
	for i, p := range series {
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
			return nil, fmt.Errorf("bands: malformed close at index %d: %v", i, p.Close)
		}
		sum += p.Close
		sumSq += p.Close * p.Close
		if i >= e.window {
			old := series[i-e.window].Close
			sum -= old
			sumSq -= old * old
		}
		if i < e.window-1 {
			continue
		}

		mean := sum / w
		variance := (sumSq - sum*sum/w) / (w - 1)
		if variance < 0 {
			// floating-point cancellation on near-constant windows
			variance = 0
		}
		band := e.stdMultiplier * math.Sqrt(variance)
		upper := mean + band
		lower := mean - band

		// Zero band width means zero trailing volatility; pctB is 0.5 by
		// convention so the point classifies neutral instead of blowing up
		// on the division.
		pctB := 0.5
		if upper != lower {
			pctB = (p.Close - lower) / (upper - lower)
		}

		out = append(out, models.BandPoint{
			Timestamp: p.Timestamp,
			Middle:    mean,
			Upper:     upper,
			Lower:     lower,
			PctB:      pctB,
		})
	}
	return out, nil
}

// Latest computes the bands and returns only the most recent point.
func (e *Engine) Latest(series models.PriceSeries) (models.BandPoint, error) {
	points, err := e.Compute(series)
	if err != nil {
		return models.BandPoint{}, err
	}
	return points[len(points)-1], nil
}
