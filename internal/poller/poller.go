package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/alert"
)

// AlertLister fetches every alert the server holds.
type AlertLister interface {
	ListAlerts(ctx context.Context) ([]alert.Descriptor, error)
}

// Health reports stream connectivity.
type Health interface {
	IsConnected() bool
}

// SnapshotHandler receives synthetic snapshot messages.
type SnapshotHandler interface {
	HandleSnapshot(msg alert.Message) error
}

// SnapshotHandlerFunc is a function adapter for SnapshotHandler.
type SnapshotHandlerFunc func(alert.Message) error

func (f SnapshotHandlerFunc) HandleSnapshot(m alert.Message) error {
	return f(m)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 1m)
	Timeout  time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: time.Minute,
		Timeout:  10 * time.Second,
	}
}

// Stats are poller counters.
type Stats struct {
	Polls   int64
	Skipped int64
	Errors  int64
}

// Poller periodically replaces the alert set from REST while the stream
// is disconnected.
type Poller struct {
	cfg     Config
	client  AlertLister
	health  Health
	handler SnapshotHandler
	logger  *zap.Logger

	polls   atomic.Int64
	skipped atomic.Int64
	errors  atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller. A nil health polls unconditionally.
func New(cfg Config, client AlertLister, health Health, handler SnapshotHandler, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		cfg:     cfg,
		client:  client,
		health:  health,
		handler: handler,
		logger:  logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run(ctx)

	p.logger.Info("snapshot poller started",
		zap.Duration("interval", p.cfg.Interval),
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("snapshot poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns poller counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Polls:   p.polls.Load(),
		Skipped: p.skipped.Load(),
		Errors:  p.errors.Load(),
	}
}

// run is the main polling loop. The first poll happens after one interval
// so the stream has a chance to connect.
func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll fetches the alert list and hands it over as a snapshot.
func (p *Poller) poll(ctx context.Context) {
	if p.health != nil && p.health.IsConnected() {
		p.skipped.Add(1)
		p.logger.Debug("stream connected, skipping poll")
		return
	}

	start := time.Now()
	p.polls.Add(1)

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	alerts, err := p.client.ListAlerts(reqCtx)
	if err != nil {
		p.errors.Add(1)
		p.logger.Warn("failed to poll alerts", zap.Error(err))
		return
	}

	msg := alert.Message{Action: alert.ActionSnapshot, Alerts: alerts}
	if err := msg.Validate(); err != nil {
		p.errors.Add(1)
		p.logger.Warn("polled alerts are invalid", zap.Error(err))
		return
	}

	if err := p.handler.HandleSnapshot(msg); err != nil {
		p.errors.Add(1)
		p.logger.Warn("failed to apply polled snapshot", zap.Error(err))
		return
	}

	p.logger.Info("poll cycle complete",
		zap.Int("alerts", len(alerts)),
		zap.Duration("duration", time.Since(start)),
	)
}
