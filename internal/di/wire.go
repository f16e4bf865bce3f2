//go:build wireinject
// +build wireinject

package di

import (
	"github.com/alert006/new-bollinger-scanner/pkg/config"
	"github.com/alert006/new-bollinger-scanner/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideRateLimiter,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvidePriceSource,
		ProvideCandleStore,
		ProvideReportPublisher,

		// Use cases
		ProvideScanner,
		ProvideBandSeries,
		ProvideScanRequestHandler,

		// Delivery
		ProvideHub,
		ProvideScannerHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
