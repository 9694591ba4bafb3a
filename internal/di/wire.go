//go:build wireinject
// +build wireinject

package di

import (
	"KronosAlign/pkg/config"
	"KronosAlign/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideRedisCache,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideSQLiteRunIndex,

		// Forecaster and alignment
		ProvideForecastClient,
		ProvideRegistry,
		ProvideEngine,
		ProvideSeriesCache,
		ProvideSeriesLoader,

		// Repositories
		ProvideRecordStores,
		ProvideRunIndex,
		ProvideMarketSource,

		// Use cases and jobs
		ProvidePredictionUseCase,
		ProvideDataUseCase,
		ProvideModelUseCase,
		ProvideJobQueue,
		ProvideFetchUseCase,
		ProvideRefreshJob,
		ProvideScheduler,
		ProvideKafkaConsumer,
		ProvidePredictionJobHandler,

		// HTTP
		ProvideRateLimiter,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
