package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alert006/new-bollinger-scanner/internal/domain/models"
)

func sampleReport() *models.ScanReport {
	return &models.ScanReport{
		Signals: []models.Signal{{
			Instrument: "RELIANCE.NS",
			Kind:       models.SignalSell,
			PctB:       1.02,
			Close:      2950,
			Upper:      2900,
			Lower:      2700,
		}},
		Errors: []models.ScanError{{
			Instrument: "INFY.NS",
			Kind:       models.ErrorFetchFailed,
			Detail:     "timeout",
		}},
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCIOutputSinkWritesEscapedVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gh_output")
	t.Setenv("GITHUB_OUTPUT", path)

	sink := NewCIOutputSink("signal")
	if err := sink.Publish(context.Background(), sampleReport()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	got := string(b)
	if !strings.HasPrefix(got, "signal=") {
		t.Fatalf("expected variable assignment, got %q", got)
	}
	if strings.Count(got, "\n") != 1 {
		t.Fatalf("multi-line report must collapse to one line, got %q", got)
	}
	if !strings.Contains(got, "%0A") {
		t.Fatalf("expected %%0A newline escaping, got %q", got)
	}
	if !strings.Contains(got, "RELIANCE") {
		t.Fatalf("expected rendered signal in output, got %q", got)
	}
}

func TestCIOutputSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gh_output")
	t.Setenv("GITHUB_OUTPUT", path)

	sink := NewCIOutputSink("signal")
	ctx := context.Background()
	if err := sink.Publish(ctx, sampleReport()); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := sink.Publish(ctx, sampleReport()); err != nil {
		t.Fatalf("second publish: %v", err)
	}

	b, _ := os.ReadFile(path)
	if strings.Count(string(b), "signal=") != 2 {
		t.Fatalf("expected two appended assignments, got %q", string(b))
	}
}

func TestCIOutputSinkFallsBackWithoutEnv(t *testing.T) {
	t.Setenv("GITHUB_OUTPUT", "")
	sink := NewCIOutputSink("")
	if err := sink.Publish(context.Background(), sampleReport()); err != nil {
		t.Fatalf("fallback publish must not fail: %v", err)
	}
}

type recordingSink struct {
	published int
	err       error
}

func (r *recordingSink) Publish(context.Context, *models.ScanReport) error {
	r.published++
	return r.err
}

func (r *recordingSink) Close() error { return nil }

func TestMultiPublisherAttemptsAllSinks(t *testing.T) {
	a := &recordingSink{err: context.DeadlineExceeded}
	b := &recordingSink{}

	m := NewMultiPublisher(a, b)
	err := m.Publish(context.Background(), sampleReport())
	if err == nil {
		t.Fatalf("expected first sink's error to propagate")
	}
	if a.published != 1 || b.published != 1 {
		t.Fatalf("all sinks must be attempted: a=%d b=%d", a.published, b.published)
	}
}
