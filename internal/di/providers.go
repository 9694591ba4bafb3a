package di

import (
	"context"
	"fmt"
	"time"

	domrepo "KronosAlign/internal/domain/repository"
	"KronosAlign/internal/handler/api"
	internalrepo "KronosAlign/internal/repository"
	"KronosAlign/internal/service/ratelimit"
	"KronosAlign/internal/service/scheduler"
	"KronosAlign/internal/services/alignment"
	"KronosAlign/internal/services/datafiles"
	"KronosAlign/internal/services/forecast"
	"KronosAlign/internal/services/marketdata"
	"KronosAlign/internal/services/registry"
	"KronosAlign/internal/usecase"
	"KronosAlign/pkg/cache"
	pkgch "KronosAlign/pkg/clickhouse"
	"KronosAlign/pkg/config"
	pkgkafka "KronosAlign/pkg/kafka"
	applogger "KronosAlign/pkg/logger"
	"KronosAlign/pkg/metrics"
	"KronosAlign/pkg/queue"
	"KronosAlign/pkg/server"
)

const serviceName = "kronos-align"

// ProvideKafkaProducer creates a Kafka producer when record streaming or
// error log collection needs one. It returns nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Persistence.Kafka && !cfg.Log.CollectErrors {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the service logger and attaches the error collector
// when configured.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stdout",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.CollectErrors && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.FlushInterval,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Service:        serviceName,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Noop{}
	}
	return metrics.New()
}

// ProvideRedisCache connects to Redis when enabled, nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideCache layers an in-process LRU over Redis, or uses the LRU alone.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MaxItems),
			cache.WithMemoryDefaultTTL(cfg.Cache.SeriesTTL),
		)
	}
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MaxItems),
		cache.WithLayeredMemoryTTL(cfg.Cache.SeriesTTL),
	)
}

func ProvideSeriesCache(cfg *config.Config, c cache.Service, l *applogger.Logger) domrepo.SeriesCache {
	return internalrepo.NewCachedSeries(c, cfg.Cache.SeriesTTL, l)
}

func ProvideForecastClient(cfg *config.Config) *forecast.Client {
	return forecast.NewClient(cfg)
}

func ProvideRegistry(client *forecast.Client, l *applogger.Logger) *registry.Registry {
	return registry.New(client, l)
}

// ProvideEngine builds the alignment engine around the model registry.
func ProvideEngine(cfg *config.Config, reg *registry.Registry, l *applogger.Logger) (*alignment.Engine, error) {
	strategy, err := alignment.CadenceStrategyByName(cfg.Data.CadenceStrategy)
	if err != nil {
		return nil, err
	}
	normalizer := alignment.NewNormalizer(l, alignment.NormalizeOptions{PositionalFallback: cfg.Data.PositionalFallback})
	return alignment.NewEngine(reg,
		alignment.WithCadenceStrategy(strategy),
		alignment.WithNormalizer(normalizer),
	), nil
}

func ProvideSeriesLoader(engine *alignment.Engine, sc domrepo.SeriesCache, l *applogger.Logger) *usecase.SeriesLoader {
	return usecase.NewSeriesLoader(engine, sc, l)
}

// ProvideClickHouseClient connects and migrates the record tables when the
// ClickHouse sink is enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Persistence.ClickHouse {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema(client.Database())); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideSQLiteRunIndex opens the local run index when enabled.
func ProvideSQLiteRunIndex(cfg *config.Config, l *applogger.Logger) (*internalrepo.SQLiteRunIndex, error) {
	if !cfg.Persistence.SQLite.Enabled {
		return nil, nil
	}
	idx, err := internalrepo.NewSQLiteRunIndex(cfg.RunIndexPath(), l)
	if err != nil {
		return nil, fmt.Errorf("run index: %w", err)
	}
	return idx, nil
}

// ProvideRecordStores lists every enabled sink. The sqlite index doubles as
// a store so it sees every record.
func ProvideRecordStores(
	cfg *config.Config,
	l *applogger.Logger,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	idx *internalrepo.SQLiteRunIndex,
) []domrepo.RecordStore {
	var stores []domrepo.RecordStore
	if cfg.Persistence.JSON {
		stores = append(stores, internalrepo.NewJSONRecordStore(cfg.ResultsDir(), l))
	}
	if ch != nil {
		s := internalrepo.NewCHRecordStore(ch)
		s.SetLogger(l)
		stores = append(stores, s)
	}
	if cfg.Persistence.Kafka && producer != nil {
		stores = append(stores, internalrepo.NewKafkaRecordPublisher(producer, cfg.Kafka.Topic))
	}
	if idx != nil {
		stores = append(stores, idx)
	}
	return stores
}

// ProvideRunIndex prefers the local sqlite index and falls back to ClickHouse.
func ProvideRunIndex(idx *internalrepo.SQLiteRunIndex, ch *pkgch.Client) domrepo.RunIndex {
	switch {
	case idx != nil:
		return idx
	case ch != nil:
		return internalrepo.NewCHRecordStore(ch)
	default:
		return nil
	}
}

func ProvidePredictionUseCase(
	engine *alignment.Engine,
	loader *usecase.SeriesLoader,
	reg *registry.Registry,
	stores []domrepo.RecordStore,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.PredictionUseCase {
	return usecase.NewPredictionUseCase(engine, loader, reg, stores, m, l)
}

func ProvideDataUseCase(cfg *config.Config, loader *usecase.SeriesLoader, runs domrepo.RunIndex, l *applogger.Logger) *usecase.DataUseCase {
	return usecase.NewDataUseCase(datafiles.NewCatalog(l, cfg.Data.ProjectDir, cfg.Data.Root), loader, runs)
}

func ProvideModelUseCase(reg *registry.Registry) *usecase.ModelUseCase {
	return usecase.NewModelUseCase(reg)
}

// ProvideJobQueue uses Redis when available and an in-process queue otherwise.
func ProvideJobQueue(cfg *config.Config, rc *cache.RedisCache, l *applogger.Logger) queue.Queue {
	qcfg := &queue.QueueConfig{
		Workers:     cfg.Queue.Workers,
		RetryLimit:  cfg.Queue.MaxRetries,
		RetryDelay:  cfg.Queue.RetryDelay,
		PollTimeout: cfg.Queue.PollTimeout,
	}
	if rc != nil {
		return queue.NewRedisQueue(l, qcfg, rc.Client(), queue.ModeProducerConsumer, queue.WithKeyPrefix(cfg.Queue.Name))
	}
	return queue.NewLocalQueue(l, qcfg)
}

func ProvideMarketSource(cfg *config.Config, l *applogger.Logger) domrepo.MarketSource {
	return marketdata.NewYahooSource(cfg, l)
}

func ProvideFetchUseCase(
	cfg *config.Config,
	src domrepo.MarketSource,
	loader *usecase.SeriesLoader,
	q queue.Queue,
	c cache.Service,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.FetchUseCase {
	return usecase.NewFetchUseCase(src, loader, q, c, cfg.Data.Root, m, l)
}

// ProvideRefreshJob registers the refresh job on the queue.
func ProvideRefreshJob(q queue.Queue, uc *usecase.FetchUseCase) *usecase.RefreshJob {
	job := usecase.NewRefreshJob(uc)
	q.RegisterJob(job)
	return job
}

// ProvideScheduler returns nil when scheduled refresh is disabled.
func ProvideScheduler(cfg *config.Config, q queue.Queue, _ *usecase.RefreshJob, l *applogger.Logger) (*scheduler.Scheduler, error) {
	r := cfg.Scheduler.Refresh
	if !r.Enabled {
		return nil, nil
	}
	return scheduler.New(q, scheduler.RefreshPlan{
		Spec:     r.Spec,
		Tickers:  r.Tickers,
		Interval: r.Interval,
		Period:   r.Period,
	}, l)
}

// ProvideKafkaConsumer creates the jobs consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

func ProvidePredictionJobHandler(cfg *config.Config, uc *usecase.PredictionUseCase, l *applogger.Logger) *usecase.PredictionJobHandler {
	return usecase.NewPredictionJobHandler(cfg.Kafka.JobsTopic, uc, l)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	rl := cfg.Server.FetchRateLimit
	if rl.PerSecond <= 0 {
		return nil
	}
	return ratelimit.New(rl.PerSecond, rl.Burst)
}

func ProvideHTTPHandler(
	l *applogger.Logger,
	predict *usecase.PredictionUseCase,
	data *usecase.DataUseCase,
	model *usecase.ModelUseCase,
	fetch *usecase.FetchUseCase,
	limiter *ratelimit.Limiter,
) *api.PredictionEchoHandler {
	return api.NewPredictionEchoHandler(l, predict, data, model, fetch, limiter)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.PredictionEchoHandler,
	models *usecase.ModelUseCase,
	q queue.Queue,
	sched *scheduler.Scheduler,
	consumer *pkgkafka.Consumer,
	jobs *usecase.PredictionJobHandler,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	idx *internalrepo.SQLiteRunIndex,
	c cache.Service,
) *server.App {
	app := server.New(cfg, l, handler, models, q)
	if sched != nil {
		app.SetScheduler(sched)
	}
	if consumer != nil {
		app.SetConsumer(consumer, jobs)
	}
	if producer != nil {
		app.AddCloser("kafka producer", producer.Close)
	}
	if ch != nil {
		app.AddCloser("clickhouse", ch.Close)
	}
	if idx != nil {
		app.AddCloser("run index", idx.Close)
	}
	app.AddCloser("cache", c.Close)
	return app
}
