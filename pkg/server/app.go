package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"KronosAlign/internal/domain/models"
	"KronosAlign/internal/service/scheduler"
	"KronosAlign/internal/usecase"
	"KronosAlign/pkg/config"
	xhttp "KronosAlign/pkg/http"
	pkgkafka "KronosAlign/pkg/kafka"
	applogger "KronosAlign/pkg/logger"
	"KronosAlign/pkg/queue"
)

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	handler    xhttp.Handler
	models     *usecase.ModelUseCase
	queue      queue.Queue
	sched      *scheduler.Scheduler
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	httpServer *xhttp.Server
	closers    []closer
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, handler xhttp.Handler, models *usecase.ModelUseCase, q queue.Queue) *App {
	return &App{
		cfg:     cfg,
		l:       l,
		handler: handler,
		models:  models,
		queue:   q,
	}
}

// SetScheduler attaches the periodic refresh scheduler.
func (a *App) SetScheduler(s *scheduler.Scheduler) { a.sched = s }

// SetConsumer attaches the Kafka consumer and the handler it serves.
func (a *App) SetConsumer(c *pkgkafka.Consumer, kh pkgkafka.MessageHandler) {
	a.consumer = c
	a.kh = kh
}

// AddCloser registers an infrastructure client closed on shutdown, in
// reverse order of registration.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Start launches every background component and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			return err
		}
		a.l.Info("job queue started", applogger.Int("workers", a.cfg.Queue.Workers))
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.sched != nil {
		a.sched.Start()
		a.l.Info("refresh scheduler started",
			applogger.String("spec", a.cfg.Scheduler.Refresh.Spec),
			applogger.Strings("tickers", a.cfg.Scheduler.Refresh.Tickers))
	}

	if key := a.cfg.Forecaster.AutoloadKey; key != "" && a.models != nil {
		go a.autoload(ctx, key)
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
		xhttp.WithMetricsPath(a.metricsPath()),
		xhttp.WithLogger(a.l),
	)
	return a.httpServer.Start()
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx); err != nil {
		a.l.Error("startup failed", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.Shutdown(context.Background())
}

// Shutdown gracefully stops all services.
func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.sched != nil {
		if err := a.sched.Stop(shutdownCtx); err != nil {
			a.l.Warn("scheduler stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			a.l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	// Flush collected error logs while the producer is still open.
	if a.l != nil {
		a.l.RemoveCollector()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.l.Warn("close error", applogger.String("component", c.name), applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}

func (a *App) metricsPath() string {
	if !a.cfg.Metrics.Enabled {
		return ""
	}
	return a.cfg.Metrics.Path
}

// autoload loads the configured model in the background so the HTTP server
// is reachable while the forecaster sidecar warms up.
func (a *App) autoload(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Forecaster.Timeout+30*time.Second)
	defer cancel()

	res, err := a.models.Load(ctx, models.LoadModelRequest{ModelKey: key, Device: a.cfg.Forecaster.Device})
	if err != nil {
		a.l.Warn("model autoload failed", applogger.String("model", key), applogger.Error(err))
		return
	}
	a.l.Info("model autoloaded", applogger.String("model", res.Model.Name), applogger.String("device", res.Device))
}
