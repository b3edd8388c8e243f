package market

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/market-alerts/internal/model"
)

// registryState holds the thread-safe market cache.
type registryState struct {
	mu sync.RWMutex

	// All known markets. Entries are replaced, never mutated.
	markets map[model.MarketKey]*model.Market

	// Last successful REST sync timestamp.
	lastSyncAt time.Time

	changes chan MarketChange
	dropped atomic.Int64
}

func newState(buffer int) *registryState {
	if buffer <= 0 {
		buffer = ChangeBufferSize
	}
	return &registryState{
		markets: make(map[model.MarketKey]*model.Market),
		changes: make(chan MarketChange, buffer),
	}
}

// find returns the shared market pointer (read-locked).
func (s *registryState) find(key model.MarketKey) (*model.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[key]
	return m, ok
}

// list returns a copy of all markets (read-locked).
func (s *registryState) list() []model.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Market, 0, len(s.markets))
	for _, m := range s.markets {
		result = append(result, *m)
	}
	return result
}

func (s *registryState) stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Markets: len(s.markets), Dropped: s.dropped.Load()}
	for _, m := range s.markets {
		if m.Active {
			st.Active++
		}
	}
	return st
}

// upsertMarket adds or updates a market (write-locked).
func (s *registryState) upsertMarket(m model.Market) (*model.Market, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.upsertMarketLocked(m)
}

// upsertMarketLocked stores m and reports whether the stored definition
// changed. An unchanged market keeps its existing pointer.
func (s *registryState) upsertMarketLocked(m model.Market) (*model.Market, bool) {
	key := m.Key()
	if existing, ok := s.markets[key]; ok && *existing == m {
		return existing, false
	}
	mCopy := m
	s.markets[key] = &mCopy
	return &mCopy, true
}

// removeLocked deletes a market (caller must hold write lock).
func (s *registryState) removeLocked(key model.MarketKey) bool {
	if _, ok := s.markets[key]; !ok {
		return false
	}
	delete(s.markets, key)
	return true
}

// notifyChange sends a change to the changes channel (non-blocking).
// It reports false when an older change had to be dropped.
func (s *registryState) notifyChange(change MarketChange) bool {
	select {
	case s.changes <- change:
		return true
	default:
	}

	// Channel full, drop oldest by consuming one and retrying.
	select {
	case <-s.changes:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.changes <- change:
	default:
		s.dropped.Add(1)
	}
	return false
}
