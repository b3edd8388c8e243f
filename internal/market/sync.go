package market

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/model"
)

// initialSync loads the catalog on startup. It emits no changes: the
// initial set is visible through Find before anything consumes them.
func (r *registryImpl) initialSync(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.InitialLoadTimeout)
	defer cancel()

	r.logger.Info("starting initial market sync")
	start := time.Now()

	markets, err := r.rest.GetAllMarkets(ctx)
	if err != nil {
		return fmt.Errorf("initial market sync: %w", err)
	}

	r.state.mu.Lock()
	for _, m := range markets {
		r.state.upsertMarketLocked(m)
	}
	r.state.lastSyncAt = time.Now()
	r.state.mu.Unlock()

	r.logger.Info("initial sync complete",
		zap.Int("total_markets", len(markets)),
		zap.Duration("duration", time.Since(start)),
	)

	return nil
}

// reconciliationLoop periodically syncs with REST API.
func (r *registryImpl) reconciliationLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile fetches the catalog and emits the differences.
func (r *registryImpl) reconcile(ctx context.Context) {
	start := time.Now()

	markets, err := r.rest.GetAllMarkets(ctx)
	if err != nil {
		r.logger.Error("reconciliation failed", zap.Error(err))
		return
	}
	if len(markets) == 0 {
		// An empty catalog is treated as a listing failure.
		r.logger.Warn("reconciliation returned no markets, keeping current catalog")
		return
	}

	var changes []MarketChange
	seen := make(map[model.MarketKey]struct{}, len(markets))

	r.state.mu.Lock()
	for _, m := range markets {
		key := m.Key()
		seen[key] = struct{}{}

		existing, known := r.state.markets[key]
		stored, changed := r.state.upsertMarketLocked(m)
		switch {
		case !known:
			changes = append(changes, MarketChange{Key: key, EventType: EventCreated, Market: stored})
		case changed && existing.Active != m.Active:
			changes = append(changes, MarketChange{Key: key, EventType: EventStatusChange, Market: stored})
		}
	}
	for key := range r.state.markets {
		if _, ok := seen[key]; !ok {
			r.state.removeLocked(key)
			changes = append(changes, MarketChange{Key: key, EventType: EventRemoved})
		}
	}
	r.state.lastSyncAt = time.Now()
	r.state.mu.Unlock()

	for _, c := range changes {
		if !r.state.notifyChange(c) {
			r.logger.Warn("market change buffer full, dropped oldest change",
				zap.Stringer("market", c.Key),
			)
		}
	}

	if len(changes) > 0 {
		r.logger.Info("reconciliation found changes",
			zap.Int("changes", len(changes)),
			zap.Duration("duration", time.Since(start)),
		)
	} else {
		r.logger.Debug("reconciliation complete",
			zap.Int("total_markets", len(markets)),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
