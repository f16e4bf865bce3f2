package di

import (
	"context"
	"fmt"
	"time"

	domrepo "github.com/alert006/new-bollinger-scanner/internal/domain/repository"
	"github.com/alert006/new-bollinger-scanner/internal/handler/api"
	"github.com/alert006/new-bollinger-scanner/internal/handler/ws"
	internalrepo "github.com/alert006/new-bollinger-scanner/internal/repository"
	"github.com/alert006/new-bollinger-scanner/internal/service/ratelimit"
	"github.com/alert006/new-bollinger-scanner/internal/service/yahoo"
	"github.com/alert006/new-bollinger-scanner/internal/usecase"
	"github.com/alert006/new-bollinger-scanner/pkg/cache"
	pkgch "github.com/alert006/new-bollinger-scanner/pkg/clickhouse"
	"github.com/alert006/new-bollinger-scanner/pkg/config"
	xhttp "github.com/alert006/new-bollinger-scanner/pkg/http"
	pkgkafka "github.com/alert006/new-bollinger-scanner/pkg/kafka"
	applogger "github.com/alert006/new-bollinger-scanner/pkg/logger"
	"github.com/alert006/new-bollinger-scanner/pkg/metrics"
	"github.com/alert006/new-bollinger-scanner/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	log, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCache creates the quote cache. With Redis enabled it is a layered
// memory-over-Redis cache so restarts keep warm entries; otherwise an
// in-process memory cache.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	redisCache, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache), nil
}

// ProvideRateLimiter creates the shared token-bucket limiter.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvidePriceSource creates the Yahoo Finance chart client.
func ProvidePriceSource(cfg *config.Config, cacheSvc cache.Service, limiter *ratelimit.Limiter) domrepo.PriceSource {
	return yahoo.New(
		yahoo.WithBaseURL(cfg.Provider.BaseURL),
		yahoo.WithTimeout(cfg.Provider.Timeout),
		yahoo.WithCache(cacheSvc, cfg.Provider.CacheTTL),
		yahoo.WithRateLimit(limiter, cfg.Provider.RateCapacity, cfg.Provider.RateRefill),
	)
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// candle schema. Returns nil when ClickHouse persistence is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCandleStore creates the ClickHouse candle store, or nil when
// persistence is disabled.
func ProvideCandleStore(chClient *pkgch.Client, cfg *config.Config) domrepo.CandleStore {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseCandleStore(chClient.DB(), cfg.ClickHouse.Database+".candles")
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are
// configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the scan-request consumer, or nil when
// brokers or the request topic are not configured.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.RequestTopic == "" {
		return nil, nil
	}

	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideReportPublisher assembles the report sinks: the CI output variable
// when enabled, Kafka when brokers are configured. With neither, the CI sink's
// stdout fallback still prints the rendered report.
func ProvideReportPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.ReportPublisher {
	var sinks []domrepo.ReportPublisher
	if cfg.Output.CIVariable {
		sinks = append(sinks, internalrepo.NewCIOutputSink("signal"))
	}
	if producer != nil && cfg.Kafka.ReportTopic != "" {
		sinks = append(sinks, internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.ReportTopic))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, internalrepo.NewCIOutputSink("signal"))
	}
	if len(sinks) == 1 {
		return sinks[0]
	}
	return internalrepo.NewMultiPublisher(sinks...)
}

// ProvideScanner creates the batch scanner use case.
func ProvideScanner(source domrepo.PriceSource, store domrepo.CandleStore, m domrepo.Metrics, log *applogger.Logger) *usecase.Scanner {
	return usecase.NewScanner(source, store, m, log)
}

// ProvideBandSeries creates the band-series use case.
func ProvideBandSeries(source domrepo.PriceSource) *usecase.BandSeriesUseCase {
	return usecase.NewBandSeriesUseCase(source)
}

// ProvideScanRequestHandler registers the handler for the scan-request topic,
// or nil when the topic is not configured.
func ProvideScanRequestHandler(cfg *config.Config, scanner *usecase.Scanner, publisher domrepo.ReportPublisher, log *applogger.Logger) pkgkafka.MessageHandler {
	if cfg.Kafka.RequestTopic == "" {
		return nil
	}
	return usecase.NewScanRequestHandler(cfg.Kafka.RequestTopic, scanner, publisher, cfg.Scan.Instruments, server.ScanConfig(cfg), log)
}

// ProvideHub creates the WebSocket broadcast hub.
func ProvideHub(log *applogger.Logger) *ws.Hub {
	return ws.NewHub(log)
}

// ProvideScannerHandler creates the HTTP API handler.
func ProvideScannerHandler(
	log *applogger.Logger,
	scanner *usecase.Scanner,
	series *usecase.BandSeriesUseCase,
	hub *ws.Hub,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewScannerHandler(log, scanner, series, hub, cfg.Scan.Instruments, server.ScanConfig(cfg))
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	scanner *usecase.Scanner,
	publisher domrepo.ReportPublisher,
	hub *ws.Hub,
	httpHandler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, scanner, publisher, hub, httpHandler, consumer, kh, chClient)
}
