package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/alert"
	"github.com/rickgao/market-alerts/internal/market"
)

// bridgeMarkets forwards registry changes to the manager on the loop until
// ctx is done or the change channel closes. Any market the registry holds
// resolves, active or not, so created and status changes both promote.
// When dropped reports that the registry discarded changes, the whole
// backlog is resolved again.
func bridgeMarkets(ctx context.Context, changes <-chan market.MarketChange, dropped func() int64, exec alert.Executor, mgr *alert.Manager, logger *zap.Logger) error {
	var seen int64
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			var fn func()
			switch change.EventType {
			case market.EventCreated, market.EventStatusChange:
				if change.Market == nil {
					continue
				}
				m := change.Market
				fn = func() { mgr.MarketAdded(m) }
			case market.EventRemoved:
				key := change.Key
				fn = func() { mgr.MarketRemoved(key) }
			default:
				continue
			}
			if !exec.Submit(fn) {
				logger.Debug("market change dropped, loop stopped", zap.Stringer("market", change.Key))
				return nil
			}
			if dropped == nil {
				continue
			}
			if n := dropped(); n > seen {
				logger.Warn("registry dropped market changes, resolving backlog", zap.Int64("dropped", n-seen))
				seen = n
				if !exec.Submit(mgr.ResolveBacklog) {
					return nil
				}
			}
		}
	}
}
