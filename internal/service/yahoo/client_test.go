package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	drepo "github.com/alert006/new-bollinger-scanner/internal/domain/repository"
	"github.com/alert006/new-bollinger-scanner/pkg/cache"
)

func chartJSON(timestamps []int64, closes []interface{}) string {
	body := map[string]interface{}{
		"chart": map[string]interface{}{
			"result": []interface{}{
				map[string]interface{}{
					"timestamp": timestamps,
					"indicators": map[string]interface{}{
						"quote": []interface{}{
							map[string]interface{}{"close": closes},
						},
					},
				},
			},
			"error": nil,
		},
	}
	b, _ := json.Marshal(body)
	return string(b)
}

func TestFetchParsesChartResponse(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	var gotPath, gotRange, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotInterval = r.URL.Query().Get("interval")
		fmt.Fprint(w, chartJSON(
			[]int64{base, base + 86400, base + 2*86400},
			[]interface{}{100.5, 101.25, 99.75},
		))
	}))
	defer srv.Close()

	src := New(WithBaseURL(srv.URL))
	series, err := src.Fetch(context.Background(), "RELIANCE.NS", "6mo", drepo.Interval1d)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/v8/finance/chart/RELIANCE.NS" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotRange != "6mo" || gotInterval != "1d" {
		t.Errorf("unexpected query range=%q interval=%q", gotRange, gotInterval)
	}
	if len(series) != 3 {
		t.Fatalf("expected 3 points, got %d", len(series))
	}
	if series[0].Close != 100.5 || series[2].Close != 99.75 {
		t.Fatalf("unexpected closes: %+v", series)
	}
	if !series[0].Timestamp.Before(series[1].Timestamp) {
		t.Fatalf("series must be chronological")
	}
}

func TestFetchSkipsNullCloses(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON(
			[]int64{base, base + 86400, base + 2*86400},
			[]interface{}{100.5, nil, 99.75},
		))
	}))
	defer srv.Close()

	src := New(WithBaseURL(srv.URL))
	series, err := src.Fetch(context.Background(), "TCS.NS", "6mo", drepo.Interval1d)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected null close skipped, got %d points", len(series))
	}
}

func TestFetchRejectsNonChronological(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON(
			[]int64{base + 86400, base},
			[]interface{}{100.5, 99.75},
		))
	}))
	defer srv.Close()

	src := New(WithBaseURL(srv.URL))
	if _, err := src.Fetch(context.Background(), "INFY.NS", "6mo", drepo.Interval1d); err == nil {
		t.Fatalf("expected error for out-of-order timestamps")
	}
}

func TestFetchProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	src := New(WithBaseURL(srv.URL))
	_, err := src.Fetch(context.Background(), "BOGUS.NS", "6mo", drepo.Interval1d)
	if err == nil {
		t.Fatalf("expected provider error")
	}
	if !strings.Contains(err.Error(), "No data found") {
		t.Fatalf("expected provider description in error, got %v", err)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := New(WithBaseURL(srv.URL))
	if _, err := src.Fetch(context.Background(), "TCS.NS", "6mo", drepo.Interval1d); err == nil {
		t.Fatalf("expected error for 429 response")
	}
}

func TestFetchUsesCache(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix()
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, chartJSON(
			[]int64{base, base + 86400},
			[]interface{}{100.5, 101.0},
		))
	}))
	defer srv.Close()

	mc := cache.NewMemoryCache()
	defer mc.Close()

	src := New(WithBaseURL(srv.URL), WithCache(mc, time.Minute))
	for i := 0; i < 3; i++ {
		series, err := src.Fetch(context.Background(), "RELIANCE.NS", "6mo", drepo.Interval1d)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if len(series) != 2 {
			t.Fatalf("fetch %d: expected 2 points, got %d", i, len(series))
		}
	}
	if hits != 1 {
		t.Fatalf("expected exactly one upstream hit, got %d", hits)
	}
}
