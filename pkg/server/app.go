package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alert006/new-bollinger-scanner/internal/handler/ws"
	"github.com/alert006/new-bollinger-scanner/internal/usecase"
	pkgch "github.com/alert006/new-bollinger-scanner/pkg/clickhouse"
	"github.com/alert006/new-bollinger-scanner/pkg/config"
	xhttp "github.com/alert006/new-bollinger-scanner/pkg/http"
	pkgkafka "github.com/alert006/new-bollinger-scanner/pkg/kafka"
	applogger "github.com/alert006/new-bollinger-scanner/pkg/logger"

	domrepo "github.com/alert006/new-bollinger-scanner/internal/domain/repository"

	"github.com/robfig/cron/v3"
)

// App encapsulates the entire application lifecycle: HTTP API, scheduled
// scans, Kafka scan-request consumption, and graceful shutdown.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	scanner     *usecase.Scanner
	publisher   domrepo.ReportPublisher
	hub         *ws.Hub
	httpHandler xhttp.Handler
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client

	httpServer *xhttp.Server
	cron       *cron.Cron
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	scanner *usecase.Scanner,
	publisher domrepo.ReportPublisher,
	hub *ws.Hub,
	httpHandler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		scanner:     scanner,
		publisher:   publisher,
		hub:         hub,
		httpHandler: httpHandler,
		consumer:    consumer,
		kh:          kh,
		chClient:    chClient,
	}
}

// ScanConfig derives the scanner parameters from application config.
func ScanConfig(cfg *config.Config) usecase.ScanConfig {
	return usecase.ScanConfig{
		Window:               cfg.Scan.Window,
		StdMultiplier:        cfg.Scan.StdMultiplier,
		LowThreshold:         cfg.Scan.LowThreshold,
		HighThreshold:        cfg.Scan.HighThreshold,
		Lookback:             domrepo.NormalizeLookback(cfg.Scan.Lookback),
		Interval:             domrepo.NormalizeInterval(cfg.Scan.Interval),
		Workers:              cfg.Scan.Workers,
		FetchDelay:           cfg.Scan.FetchDelay,
		PerInstrumentTimeout: cfg.Scan.PerInstrumentTimeout,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := usecase.ValidateConfig(ScanConfig(a.cfg)); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.cfg.Scan.Schedule != "" {
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(a.cfg.Scan.Schedule, func() { a.runScheduledScan(ctx) }); err != nil {
			a.log.Error("invalid scan schedule", applogger.Error(err))
			return err
		}
		a.cron.Start()
		a.log.Info("scan schedule active", applogger.String("schedule", a.cfg.Scan.Schedule))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// RunOnce performs a single scan and publishes the report, for CI and
// one-shot invocations.
func (a *App) RunOnce(ctx context.Context) error {
	if err := usecase.ValidateConfig(ScanConfig(a.cfg)); err != nil {
		return err
	}

	if a.cfg.Scan.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Scan.Timeout)
		defer cancel()
	}

	report := a.scanner.Scan(ctx, a.cfg.Scan.Instruments, ScanConfig(a.cfg))
	if err := a.publisher.Publish(ctx, report); err != nil {
		return err
	}
	a.log.Info("one-shot scan published",
		applogger.Int("signals", len(report.Signals)),
		applogger.Int("errors", len(report.Errors)),
	)
	return nil
}

func (a *App) runScheduledScan(ctx context.Context) {
	scanCtx := ctx
	if a.cfg.Scan.Timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, a.cfg.Scan.Timeout)
		defer cancel()
	}

	report := a.scanner.Scan(scanCtx, a.cfg.Scan.Instruments, ScanConfig(a.cfg))
	if err := a.publisher.Publish(scanCtx, report); err != nil {
		a.log.Error("scheduled scan publish error", applogger.Error(err))
	}
	if a.hub != nil {
		a.hub.Broadcast(report)
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.cron != nil {
		cronCtx := a.cron.Stop()
		select {
		case <-cronCtx.Done():
		case <-time.After(a.cfg.Server.ShutdownTimeout):
			a.log.Warn("cron jobs did not finish before shutdown timeout")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.hub != nil {
		a.hub.Close()
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
