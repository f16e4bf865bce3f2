package repository

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alert006/new-bollinger-scanner/internal/domain/models"
	domrepo "github.com/alert006/new-bollinger-scanner/internal/domain/repository"
	pkgkafka "github.com/alert006/new-bollinger-scanner/pkg/kafka"
)

// KafkaReportPublisher publishes completed reports to a Kafka topic, keyed by
// generation time so consumers can dedupe reruns.
type KafkaReportPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaReportPublisher creates a Kafka report publisher.
func NewKafkaReportPublisher(producer *pkgkafka.Producer, topic string) domrepo.ReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) Publish(ctx context.Context, r *models.ScanReport) error {
	key := []byte(r.GeneratedAt.UTC().Format("20060102T150405"))
	return p.producer.Publish(ctx, p.topic, key, map[string]interface{}{
		"report":   r,
		"rendered": r.Render(),
	})
}

func (p *KafkaReportPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// CIOutputSink writes the rendered report as a workflow output variable. When
// $GITHUB_OUTPUT is set, the rendered text is appended there with newlines
// escaped as %0A (the Actions multi-line convention); otherwise it falls back
// to stdout for local runs.
type CIOutputSink struct {
	name string
}

// NewCIOutputSink creates a CI output sink writing the given variable name.
func NewCIOutputSink(name string) domrepo.ReportPublisher {
	if name == "" {
		name = "signal"
	}
	return &CIOutputSink{name: name}
}

func (s *CIOutputSink) Publish(_ context.Context, r *models.ScanReport) error {
	rendered := r.Render()

	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		fmt.Printf("--- output variable %q ---\n%s\n", s.name, rendered)
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer f.Close()

	escaped := strings.ReplaceAll(rendered, "\n", "%0A")
	if _, err := fmt.Fprintf(f, "%s=%s\n", s.name, escaped); err != nil {
		return fmt.Errorf("write output variable: %w", err)
	}
	return nil
}

func (s *CIOutputSink) Close() error { return nil }

// MultiPublisher fans one report out to several sinks. Every sink is
// attempted; the first error is returned after all attempts.
type MultiPublisher struct {
	sinks []domrepo.ReportPublisher
}

// NewMultiPublisher creates a fan-out publisher.
func NewMultiPublisher(sinks ...domrepo.ReportPublisher) domrepo.ReportPublisher {
	return &MultiPublisher{sinks: sinks}
}

func (m *MultiPublisher) Publish(ctx context.Context, r *models.ScanReport) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MultiPublisher) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
