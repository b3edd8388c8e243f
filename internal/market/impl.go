package market

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/model"
)

// Config holds Market Registry configuration.
type Config struct {
	ReconcileInterval  time.Duration
	InitialLoadTimeout time.Duration
	ChangeBuffer       int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconcileInterval:  5 * time.Minute,
		InitialLoadTimeout: time.Minute,
		ChangeBuffer:       ChangeBufferSize,
	}
}

// registryImpl implements the Registry interface.
type registryImpl struct {
	cfg    Config
	rest   Lister
	logger *zap.Logger

	state *registryState

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a new Market Registry.
func NewRegistry(cfg Config, rest Lister, logger *zap.Logger) Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = DefaultConfig().ReconcileInterval
	}
	if cfg.InitialLoadTimeout <= 0 {
		cfg.InitialLoadTimeout = DefaultConfig().InitialLoadTimeout
	}

	return &registryImpl{
		cfg:    cfg,
		rest:   rest,
		logger: logger,
		state:  newState(cfg.ChangeBuffer),
	}
}

// Start loads the catalog, then starts background reconciliation.
func (r *registryImpl) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	// Initial sync (blocking).
	if err := r.initialSync(ctx); err != nil {
		r.cancel()
		return err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.reconciliationLoop(ctx)
	}()

	st := r.state.stats()
	r.logger.Info("market registry started",
		zap.Int("total_markets", st.Markets),
		zap.Int("active_markets", st.Active),
	)

	return nil
}

// Stop gracefully shuts down.
func (r *registryImpl) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("market registry stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Find resolves a market by exchange and symbol.
func (r *registryImpl) Find(exchange, symbol string) (*model.Market, bool) {
	return r.state.find(model.MarketKey{Exchange: exchange, Symbol: symbol})
}

// Markets returns every known market.
func (r *registryImpl) Markets() []model.Market {
	return r.state.list()
}

// SubscribeChanges returns a channel of market state changes.
func (r *registryImpl) SubscribeChanges() <-chan MarketChange {
	return r.state.changes
}

// Stats returns catalog counters.
func (r *registryImpl) Stats() Stats {
	return r.state.stats()
}
