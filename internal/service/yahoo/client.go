package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/alert006/new-bollinger-scanner/internal/domain/models"
	drepo "github.com/alert006/new-bollinger-scanner/internal/domain/repository"
	"github.com/alert006/new-bollinger-scanner/internal/service/ratelimit"
	"github.com/alert006/new-bollinger-scanner/pkg/cache"
	xhttp "github.com/alert006/new-bollinger-scanner/pkg/http"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client implements a PriceSource backed by the Yahoo Finance chart API.
type Client struct {
	baseURL   string
	http      *xhttp.Client
	cache     cache.Service
	cacheTTL  time.Duration
	limiter   *ratelimit.Limiter
	rateCap   float64
	rateRef   float64
	userAgent string
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http = xhttp.NewClient(xhttp.WithClientTimeout(timeout))
	}
}

// WithCache enables caching of fetched series.
func WithCache(svc cache.Service, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = svc
		c.cacheTTL = ttl
	}
}

// WithRateLimit throttles outgoing requests with a token bucket, a politeness
// measure toward the provider.
func WithRateLimit(l *ratelimit.Limiter, capacity, refillPerSec float64) Option {
	return func(c *Client) {
		c.limiter = l
		c.rateCap = capacity
		c.rateRef = refillPerSec
	}
}

// New creates a Yahoo Finance price source.
func New(opts ...Option) drepo.PriceSource {
	c := &Client{
		baseURL:   defaultBaseURL,
		http:      xhttp.NewClient(xhttp.WithClientTimeout(10 * time.Second)),
		userAgent: "Mozilla/5.0 (compatible; bollscan/1.0)",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch downloads the closing-price history of one instrument.
func (c *Client) Fetch(ctx context.Context, instrument string, lookback drepo.Lookback, interval drepo.Interval) (models.PriceSeries, error) {
	if instrument == "" {
		return nil, fmt.Errorf("yahoo: instrument is required")
	}

	key := cache.GenerateKeyWithParams("series", instrument, lookback, interval)
	if c.cache != nil {
		var cached models.PriceSeries
		if err := c.cache.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "yahoo", c.rateCap, c.rateRef); err != nil {
			return nil, fmt.Errorf("yahoo: rate limit wait: %w", err)
		}
	}

	var resp chartResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(instrument)),
		Headers: map[string]string{
			"User-Agent": c.userAgent,
		},
		QueryParams: map[string][]string{
			"range":          {string(lookback)},
			"interval":       {string(interval)},
			"includePrePost": {"false"},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("yahoo: fetch %s: %w", instrument, err)
	}

	series, err := buildSeries(instrument, &resp)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, series, c.cacheTTL)
	}
	return series, nil
}

// buildSeries converts a chart response into a strictly chronological,
// deduplicated series. Null closes (market holidays, gaps) are skipped; any
// out-of-order timestamp makes the whole response invalid.
func buildSeries(instrument string, resp *chartResponse) (models.PriceSeries, error) {
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo: %s: %s (%s)",
			instrument, resp.Chart.Error.Description, resp.Chart.Error.Code)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: %s: empty result", instrument)
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: %s: missing quote data", instrument)
	}
	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return nil, fmt.Errorf("yahoo: %s: timestamp/close length mismatch (%d vs %d)",
			instrument, len(result.Timestamp), len(closes))
	}

	series := make(models.PriceSeries, 0, len(closes))
	var last time.Time
	for i, ts := range result.Timestamp {
		if closes[i] == nil {
			continue
		}
		t := time.Unix(ts, 0).UTC()
		if !last.IsZero() {
			if t.Equal(last) {
				continue
			}
			if t.Before(last) {
				return nil, fmt.Errorf("yahoo: %s: non-chronological timestamps", instrument)
			}
		}
		series = append(series, models.PricePoint{Timestamp: t, Close: *closes[i]})
		last = t
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("yahoo: %s: no usable data points", instrument)
	}
	return series, nil
}
