package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/market-alerts/internal/alert"
	"github.com/rickgao/market-alerts/internal/api"
	"github.com/rickgao/market-alerts/internal/config"
	"github.com/rickgao/market-alerts/internal/connection"
	"github.com/rickgao/market-alerts/internal/database"
	"github.com/rickgao/market-alerts/internal/market"
	"github.com/rickgao/market-alerts/internal/metrics"
	"github.com/rickgao/market-alerts/internal/poller"
	"github.com/rickgao/market-alerts/internal/router"
	"github.com/rickgao/market-alerts/internal/server"
	"github.com/rickgao/market-alerts/internal/writer"
)

// ShutdownTimeout bounds the whole shutdown sequence.
const ShutdownTimeout = 30 * time.Second

// App holds every long-running component.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	client     *api.Client
	registry   market.Registry
	loop       *alert.Loop
	manager    *alert.Manager
	supervisor *connection.Supervisor
	router     router.Router
	poller     *poller.Poller
	metrics    *metrics.Metrics
	server     *server.Server

	// Set when the database is enabled
	pool     *pgxpool.Pool
	triggers *router.Queue[writer.TriggerRow]
	recorder *writer.Recorder
	writer   *writer.TriggerWriter
}

// New builds the components. It does no I/O.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("instance", cfg.Instance.ID))

	tokens, err := TokenProvider(cfg.API)
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		logger.Warn("no api credentials configured, requests are unauthenticated")
	}

	a := &App{cfg: cfg, logger: logger}

	a.client = api.NewClient(cfg.API.RestURL, tokens,
		api.WithLogger(logger.Named("api")),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
		api.WithPageSize(cfg.Markets.PageSize),
	)

	regCfg := market.DefaultConfig()
	regCfg.ReconcileInterval = cfg.Markets.ReconcileInterval
	a.registry = market.NewRegistry(regCfg, a.client, logger.Named("market"))

	a.loop = alert.NewLoop(cfg.Alerts.LoopBuffer, logger.Named("loop"))
	a.manager = alert.NewManager(alert.Options{
		Resolver:      a.registry,
		Remote:        a.client,
		Notifier:      logNotifier{logger: logger.Named("notify")},
		Executor:      a.loop,
		Logger:        logger.Named("alert"),
		SaveDebounce:  cfg.Alerts.SaveDebounce,
		ConfirmCancel: cfg.Alerts.ConfirmCancel,
		Notify: alert.NotifyPolicy{
			Placed:   cfg.Alerts.NotifyPlaced,
			Canceled: cfg.Alerts.NotifyCanceled,
			Expired:  cfg.Alerts.NotifyExpired,
		},
	})

	a.supervisor = connection.NewSupervisor(connection.SupervisorConfig{
		Client: connection.ClientConfig{
			URL:          cfg.API.WSURL,
			Tokens:       tokens,
			PingInterval: cfg.Stream.PingInterval,
			PingTimeout:  cfg.Stream.PingTimeout,
			WriteTimeout: cfg.Stream.WriteTimeout,
			BufferSize:   cfg.Stream.BufferSize,
		},
		ReconnectBaseWait: cfg.Stream.ReconnectBaseDelay,
		ReconnectMaxWait:  cfg.Stream.ReconnectMaxDelay,
		MessageBufferSize: cfg.Stream.BufferSize,
	}, logger.Named("stream"))

	a.router = router.NewRouter(router.DefaultRouterConfig(), a.supervisor.Messages(), a.loop, a.manager.Message, logger.Named("router"))

	if cfg.Poller.Enabled {
		a.poller = poller.New(poller.Config{
			Interval: cfg.Poller.Interval,
			Timeout:  cfg.Poller.Timeout,
		}, a.client, a.supervisor, poller.SnapshotHandlerFunc(a.submitSnapshot), logger.Named("poller"))
	}

	a.metrics = metrics.New()
	a.manager.Subscribe(a.metrics)

	if cfg.Database.Enabled {
		a.triggers = router.NewQueue[writer.TriggerRow](cfg.Writer.BufferSize)
		a.recorder = writer.NewRecorder(a.triggers, logger.Named("recorder"))
		a.manager.Subscribe(a.recorder)
	}

	return a, nil
}

// Manager returns the alert manager. Its methods must run on the loop.
func (a *App) Manager() *alert.Manager { return a.manager }

// Loop returns the alert loop.
func (a *App) Loop() *alert.Loop { return a.loop }

// Run starts everything, blocks until ctx is done and then shuts down.
func (a *App) Run(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		a.shutdown()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bridgeMarkets(gctx, a.registry.SubscribeChanges(), func() int64 { return a.registry.Stats().Dropped }, a.loop, a.manager, a.logger.Named("bridge"))
	})

	a.logger.Info("alerts daemon running",
		zap.String("rest_url", a.cfg.API.RestURL),
		zap.String("ws_url", a.cfg.API.WSURL),
		zap.Int("markets", a.registry.Stats().Markets),
	)

	<-ctx.Done()
	a.logger.Info("shutting down")

	err := g.Wait()
	a.shutdown()
	return err
}

func (a *App) start(ctx context.Context) error {
	var writerStats func() writer.Metrics

	if a.cfg.Database.Enabled {
		pool, err := database.Connect(ctx, a.cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.pool = pool
		if err := writer.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("ensure trigger schema: %w", err)
		}
		a.writer = writer.NewTriggerWriter(writer.Config{
			BatchSize:     a.cfg.Writer.BatchSize,
			FlushInterval: a.cfg.Writer.FlushInterval,
		}, a.triggers, pool, a.logger.Named("writer"))
		writerStats = a.writer.Stats
		a.logger.Info("database connected",
			zap.String("host", a.cfg.Database.Host),
			zap.String("database", a.cfg.Database.Name),
		)
	}

	if err := a.registry.Start(ctx); err != nil {
		return fmt.Errorf("start market registry: %w", err)
	}
	if err := a.loop.Start(ctx); err != nil {
		return err
	}
	if a.writer != nil {
		if err := a.writer.Start(ctx); err != nil {
			return err
		}
	}
	if err := a.router.Start(ctx); err != nil {
		return err
	}
	if err := a.supervisor.Start(ctx); err != nil {
		return err
	}
	if a.poller != nil {
		if err := a.poller.Start(ctx); err != nil {
			return err
		}
	}

	a.metrics.Register(metrics.Sources{
		Alerts:  a.manager.Stats,
		Markets: a.registry.Stats,
		Stream:  a.supervisor.Stats,
		Router:  a.router.Stats,
		Writer:  writerStats,
	})

	deps := server.Deps{
		Loop:    a.loop,
		Manager: a.manager,
		Stream:  a.supervisor,
		Metrics: a.metrics.Handler(),
		Markets: a.registry.Markets,
	}
	if a.pool != nil {
		deps.Database = a.pool
	}
	a.server = server.New(a.cfg.Server.Port, deps, a.logger.Named("server"))
	return a.server.Start(ctx)
}

// shutdown stops components in reverse start order. Components that never
// started return immediately.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	stop := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			a.logger.Warn("stop failed", zap.String("component", name), zap.Error(err))
		}
	}

	if a.server != nil {
		stop("server", a.server.Stop)
	}
	if a.poller != nil {
		stop("poller", a.poller.Stop)
	}
	stop("stream", a.supervisor.Stop)
	stop("router", a.router.Stop)
	stop("loop", a.loop.Stop)
	if a.writer != nil {
		stop("writer", a.writer.Stop)
	}
	stop("market registry", a.registry.Stop)
	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("alerts daemon stopped")
}

// submitSnapshot hands a polled snapshot to the loop.
func (a *App) submitSnapshot(msg alert.Message) error {
	if !a.loop.Submit(func() { a.manager.Message(msg) }) {
		return alert.ErrExecutorStopped
	}
	return nil
}
