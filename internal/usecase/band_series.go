package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/alert006/new-bollinger-scanner/internal/domain/models"
	domrepo "github.com/alert006/new-bollinger-scanner/internal/domain/repository"
	"github.com/alert006/new-bollinger-scanner/internal/services/bands"
	"github.com/alert006/new-bollinger-scanner/pkg/util"
)

// BandSeriesUseCase returns the full band sequence of one instrument, for
// charting consumers that need the whole series rather than a single signal.
type BandSeriesUseCase struct {
	source domrepo.PriceSource
}

func NewBandSeriesUseCase(source domrepo.PriceSource) *BandSeriesUseCase {
	return &BandSeriesUseCase{source: source}
}

type GetBandSeriesParams struct {
	Instrument    string
	Window        int
	StdMultiplier float64
	Lookback      string
	Interval      string
	From          string
	To            string
}

type GetBandSeriesResult struct {
	Instrument string             `json:"instrument"`
	Window     int                `json:"window"`
	Interval   string             `json:"interval"`
	Count      int                `json:"count"`
	Points     []models.BandPoint `json:"points"`
}

func (uc *BandSeriesUseCase) GetBandSeries(ctx context.Context, p GetBandSeriesParams) (*GetBandSeriesResult, error) {
	if p.Instrument == "" {
		return nil, fmt.Errorf("instrument required")
	}

	engine, err := bands.NewEngine(p.Window, p.StdMultiplier)
	if err != nil {
		return nil, err
	}

	lookback := domrepo.NormalizeLookback(p.Lookback)
	interval := domrepo.NormalizeInterval(p.Interval)

	series, err := uc.source.Fetch(ctx, p.Instrument, lookback, interval)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p.Instrument, err)
	}

	from := util.ParseTimeDefault(p.From, time.Time{})
	to := util.ParseTimeDefault(p.To, time.Time{})
	if !from.IsZero() || !to.IsZero() {
		series = series.Between(from, to)
	}

	points, err := engine.Compute(series)
	if err != nil {
		return nil, err
	}

	return &GetBandSeriesResult{
		Instrument: p.Instrument,
		Window:     p.Window,
		Interval:   string(interval),
		Count:      len(points),
		Points:     points,
	}, nil
}
