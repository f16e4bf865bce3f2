package bands

import (
	"fmt"

	"github.com/alert006/new-bollinger-scanner/internal/domain/models"
)

// Classifier maps a %B value to a signal kind using configured thresholds.
// It is pure and holds no state beyond the thresholds themselves.
type Classifier struct {
	low  float64
	high float64
}

// NewClassifier validates thresholds: low in [0,1), high in (0,1], low < high.
func NewClassifier(low, high float64) (*Classifier, error) {
	if low < 0 || low >= 1 {
		return nil, fmt.Errorf("bands: low threshold must be in [0,1), got %v", low)
	}
	if high <= 0 || high > 1 {
		return nil, fmt.Errorf("bands: high threshold must be in (0,1], got %v", high)
	}
	if low >= high {
		return nil, fmt.Errorf("bands: low threshold %v must be below high %v", low, high)
	}
	return &Classifier{low: low, high: high}, nil
}

// Classify returns buy below the low threshold (oversold), sell above the
// high threshold (overbought), neutral otherwise.
func (c *Classifier) Classify(pctB float64) models.SignalKind {
	switch {
	case pctB < c.low:
		return models.SignalBuy
	case pctB > c.high:
		return models.SignalSell
	default:
		return models.SignalNeutral
	}
}
