package bands

import (
	"testing"

	"github.com/alert006/new-bollinger-scanner/internal/domain/models"
)

func TestNewClassifierRejectsBadThresholds(t *testing.T) {
	cases := []struct{ low, high float64 }{
		{-0.1, 0.95},
		{1.0, 0.95},
		{0.05, 0},
		{0.05, 1.1},
		{0.5, 0.5},
		{0.9, 0.1},
	}
	for _, c := range cases {
		if _, err := NewClassifier(c.low, c.high); err == nil {
			t.Fatalf("expected error for low=%v high=%v", c.low, c.high)
		}
	}
	if _, err := NewClassifier(0, 1); err != nil {
		t.Fatalf("full-range thresholds should be valid: %v", err)
	}
}

func TestClassifyThresholds(t *testing.T) {
	c, err := NewClassifier(0.05, 0.95)
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	cases := []struct {
		pctB float64
		want models.SignalKind
	}{
		{-0.3, models.SignalBuy},
		{0.0, models.SignalBuy},
		{0.049, models.SignalBuy},
		{0.05, models.SignalNeutral}, // boundary is inclusive-neutral
		{0.5, models.SignalNeutral},
		{0.95, models.SignalNeutral},
		{0.951, models.SignalSell},
		{1.2, models.SignalSell},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.pctB); got != tc.want {
			t.Fatalf("pctB=%v: got %s want %s", tc.pctB, got, tc.want)
		}
	}
}
