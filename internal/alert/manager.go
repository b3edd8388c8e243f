package alert

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/model"
)

// DefaultSaveDebounce is the Save coalescing window.
const DefaultSaveDebounce = 300 * time.Millisecond

// Resolver looks up locally known markets.
type Resolver interface {
	Find(exchange, symbol string) (*model.Market, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(exchange, symbol string) (*model.Market, bool)

func (f ResolverFunc) Find(exchange, symbol string) (*model.Market, bool) {
	return f(exchange, symbol)
}

// Capability reports whether an exchange supports the alert type and
// direction on market.
type Capability func(market *model.Market, t Type, d Direction) bool

// Options wires a Manager to its collaborators.
type Options struct {
	Resolver   Resolver
	Remote     Remote
	Confirmer  Confirmer  // nil confirms everything
	Notifier   Notifier   // nil drops notifications
	Capability Capability // nil allows everything
	Executor   Executor   // nil runs inline
	Logger     *zap.Logger
	Clock      func() time.Time

	// Context is passed to Remote calls.
	Context context.Context

	SaveDebounce  time.Duration
	ConfirmCancel bool
	Notify        NotifyPolicy
}

// Stats is a point-in-time view safe to read from any goroutine.
type Stats struct {
	Alerts  int64
	Backlog int64
}

// Manager owns the set of alerts and keeps it in sync with the stream.
// Except for Stats, methods must be called on the executor.
type Manager struct {
	opts       Options
	remote     Remote
	resolver   Resolver
	executor   Executor
	capability Capability
	logger     *zap.Logger
	ctx        context.Context

	alerts    []*Alert
	backlog   backlog
	observers observers

	alertCount   atomic.Int64
	backlogCount atomic.Int64
}

// NewManager creates a Manager.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Executor == nil {
		opts.Executor = InlineExecutor{}
	}
	if opts.Capability == nil {
		opts.Capability = func(*model.Market, Type, Direction) bool { return true }
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.SaveDebounce <= 0 {
		opts.SaveDebounce = DefaultSaveDebounce
	}
	if opts.Remote == nil {
		opts.Remote = noRemote{}
	}
	if opts.Resolver == nil {
		opts.Resolver = ResolverFunc(func(string, string) (*model.Market, bool) { return nil, false })
	}

	return &Manager{
		opts:       opts,
		remote:     opts.Remote,
		resolver:   opts.Resolver,
		executor:   opts.Executor,
		capability: opts.Capability,
		logger:     opts.Logger,
		ctx:        opts.Context,
	}
}

// Subscribe registers o for events of every alert. The returned func
// unsubscribes.
func (m *Manager) Subscribe(o Observer) func() {
	return m.observers.add(o)
}

// Stats returns alert and backlog counts.
func (m *Manager) Stats() Stats {
	return Stats{
		Alerts:  m.alertCount.Load(),
		Backlog: m.backlogCount.Load(),
	}
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// Find returns the alert with uuid, or nil.
func (m *Manager) Find(uuid string) *Alert {
	for _, a := range m.alerts {
		if a.uuid == uuid {
			return a
		}
	}
	return nil
}

// All returns every tracked alert in creation order.
func (m *Manager) All() []*Alert {
	out := make([]*Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Valid returns the alerts that pass IsValid.
func (m *Manager) Valid() []*Alert {
	return m.filter((*Alert).IsValid)
}

// Open returns the alerts with status open.
func (m *Manager) Open() []*Alert {
	return m.filter((*Alert).IsOpen)
}

func (m *Manager) filter(keep func(*Alert) bool) []*Alert {
	var out []*Alert
	for _, a := range m.alerts {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// Backlog returns the unresolved descriptors in arrival order.
func (m *Manager) Backlog() []Descriptor {
	return m.backlog.list()
}

// -----------------------------------------------------------------------------
// Mutations
// -----------------------------------------------------------------------------

// Create adds a local draft with status pending. If p.UUID is already
// tracked the existing alert is returned unchanged.
func (m *Manager) Create(p Params) *Alert {
	if p.UUID != "" {
		if a := m.Find(p.UUID); a != nil {
			return a
		}
	}
	a := newDraft(m, p)
	m.add(a)
	return a
}

// Destroy removes a from the manager.
func (m *Manager) Destroy(a *Alert) {
	if a == nil || a.manager != m {
		return
	}
	a.Destroy()
}

// MarketAdded promotes backlog entries that reference market.
func (m *Manager) MarketAdded(market *model.Market) {
	if market == nil {
		return
	}
	promoted := m.backlog.take(market.Key())
	if len(promoted) == 0 {
		return
	}
	m.backlogCount.Store(int64(m.backlog.len()))

	for _, d := range promoted {
		if a := m.Find(d.UUID); a != nil {
			a.Update(d)
			continue
		}
		m.create(d, market)
	}

	m.logger.Info("promoted backlog alerts",
		zap.Stringer("market", market.Key()),
		zap.Int("count", len(promoted)),
	)
}

// ResolveBacklog promotes every backlog entry whose market now resolves.
func (m *Manager) ResolveBacklog() {
	seen := make(map[model.MarketKey]bool)
	for _, d := range m.backlog.list() {
		if d.Market == nil || seen[*d.Market] {
			continue
		}
		seen[*d.Market] = true
		if market, ok := m.resolve(*d.Market); ok {
			m.MarketAdded(market)
		}
	}
}

// MarketRemoved destroys the alerts that reference key.
func (m *Manager) MarketRemoved(key model.MarketKey) {
	for _, a := range m.All() {
		if a.market != nil && a.market.Key() == key {
			a.Destroy()
		}
	}
}

// update applies a descriptor from the stream: resolved descriptors update
// or create the alert, unresolved ones wait in the backlog.
func (m *Manager) update(d Descriptor) {
	existing := m.Find(d.UUID)

	if d.Market == nil {
		if existing != nil {
			existing.Update(d)
			return
		}
		if m.backlog.merge(d) {
			return
		}
		m.logger.Warn("dropped alert descriptor without market", zap.String("uuid", d.UUID))
		return
	}

	market, ok := m.resolve(*d.Market)
	if !ok {
		if existing != nil {
			d = existing.Descriptor().Merge(d)
			existing.Destroy()
		}
		m.backlog.put(d)
		m.backlogCount.Store(int64(m.backlog.len()))
		m.logger.Debug("deferred alert with unresolved market",
			zap.String("uuid", d.UUID),
			zap.Stringer("market", d.Market),
		)
		return
	}

	if existing != nil {
		existing.Update(d)
		return
	}

	if pending, ok := m.backlog.remove(d.UUID); ok {
		d = pending.Merge(d)
		m.backlogCount.Store(int64(m.backlog.len()))
	}
	m.create(d, market)
}

func (m *Manager) create(d Descriptor, market *model.Market) *Alert {
	a := newRemote(m, d, market)
	m.add(a)
	return a
}

func (m *Manager) add(a *Alert) {
	m.alerts = append(m.alerts, a)
	m.alertCount.Store(int64(len(m.alerts)))
	m.observers.each(func(o Observer) { o.AlertCreated(a) })
}

func (m *Manager) didDestroyAlert(a *Alert) {
	for i, x := range m.alerts {
		if x == a {
			m.alerts = append(m.alerts[:i:i], m.alerts[i+1:]...)
			break
		}
	}
	m.alertCount.Store(int64(len(m.alerts)))
	m.observers.each(func(o Observer) { o.AlertDestroyed(a) })
}

func (m *Manager) resolve(key model.MarketKey) (*model.Market, bool) {
	if key.IsZero() {
		return nil, false
	}
	return m.resolver.Find(key.Exchange, key.Symbol)
}

func (m *Manager) confirm(p Prompt) bool {
	if m.opts.Confirmer == nil {
		return true
	}
	return m.opts.Confirmer.Confirm(p)
}

func (m *Manager) notify(n Notification) {
	if m.opts.Notifier == nil {
		return
	}
	if err := m.opts.Notifier.Notify(m.ctx, n); err != nil {
		m.logger.Warn("notification failed",
			zap.String("uuid", n.Alert),
			zap.String("kind", string(n.Kind)),
			zap.Error(err),
		)
	}
}

func (m *Manager) now() time.Time {
	return m.opts.Clock()
}

var errNoRemote = errors.New("alert: no remote configured")

type noRemote struct{}

func (noRemote) CreateAlert(context.Context, CreateRequest) (CreateResponse, error) {
	return CreateResponse{}, errNoRemote
}

func (noRemote) UpdateAlert(context.Context, string, UpdateRequest) error { return errNoRemote }

func (noRemote) DeleteAlert(context.Context, string) error { return errNoRemote }

// async runs call on its own goroutine and applies the completion it
// returns on the executor.
func (m *Manager) async(call func(ctx context.Context) func() error) Future {
	done := make(chan error, 1)
	go func() {
		complete := call(m.ctx)
		ok := m.executor.Submit(func() {
			done <- complete()
			close(done)
		})
		if !ok {
			done <- ErrExecutorStopped
			close(done)
		}
	}()
	return done
}
