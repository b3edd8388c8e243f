package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/market-alerts/internal/model"
)

var (
	btc = &model.Market{
		ID:        "m-btc",
		Exchange:  model.Exchange{ID: "coinbase", Name: "Coinbase"},
		Symbol:    "BTC-USD",
		Base:      "BTC",
		Quote:     "USD",
		Precision: model.Precision{Price: 2, Amount: 4},
		Active:    true,
	}
	eth = &model.Market{
		ID:        "m-eth",
		Exchange:  model.Exchange{ID: "kraken", Name: "Kraken"},
		Symbol:    "ETH-USD",
		Base:      "ETH",
		Quote:     "USD",
		Precision: model.Precision{Price: 1, Amount: 3},
		Active:    true,
	}
)

// fakeResolver is a mutable market table.
type fakeResolver struct {
	mu      sync.Mutex
	markets map[model.MarketKey]*model.Market
}

func newResolver(markets ...*model.Market) *fakeResolver {
	r := &fakeResolver{markets: make(map[model.MarketKey]*model.Market)}
	for _, m := range markets {
		r.add(m)
	}
	return r
}

func (r *fakeResolver) add(m *model.Market) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markets[m.Key()] = m
}

func (r *fakeResolver) Find(exchange, symbol string) (*model.Market, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markets[model.MarketKey{Exchange: exchange, Symbol: symbol}]
	return m, ok
}

// fakeRemote records requests. When gate is set every call blocks until it
// receives a value.
type fakeRemote struct {
	mu      sync.Mutex
	creates []CreateRequest
	updates []UpdateRequest
	deletes []string

	created   time.Time
	createErr error
	updateErr error
	deleteErr error

	gate    chan struct{}
	updated chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		created: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		updated: make(chan struct{}, 16),
	}
}

func (r *fakeRemote) wait() {
	if r.gate != nil {
		<-r.gate
	}
}

func (r *fakeRemote) CreateAlert(_ context.Context, req CreateRequest) (CreateResponse, error) {
	r.mu.Lock()
	r.creates = append(r.creates, req)
	r.mu.Unlock()
	r.wait()
	if r.createErr != nil {
		return CreateResponse{}, r.createErr
	}
	return CreateResponse{Created: model.NewTimestamp(r.created)}, nil
}

func (r *fakeRemote) UpdateAlert(_ context.Context, _ string, req UpdateRequest) error {
	r.mu.Lock()
	r.updates = append(r.updates, req)
	r.mu.Unlock()
	r.updated <- struct{}{}
	return r.updateErr
}

func (r *fakeRemote) DeleteAlert(_ context.Context, uuid string) error {
	r.mu.Lock()
	r.deletes = append(r.deletes, uuid)
	r.mu.Unlock()
	r.wait()
	return r.deleteErr
}

func (r *fakeRemote) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.creates) + len(r.updates) + len(r.deletes)
}

func (r *fakeRemote) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

// recorder captures observer events as strings like "updated:status".
type recorder struct {
	mu     sync.Mutex
	events []string
	errs   []error
	fires  []model.TriggerEvent
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) AlertCreated(a *Alert)          { r.add("created:" + a.UUID()) }
func (r *recorder) AlertUpdated(_ *Alert, f Field) { r.add("updated:" + string(f)) }
func (r *recorder) AlertDestroyed(a *Alert)        { r.add("destroyed:" + a.UUID()) }
func (r *recorder) WillTransmit(*Alert)            { r.add("will-transmit") }
func (r *recorder) DidTransmit(*Alert)             { r.add("did-transmit") }
func (r *recorder) WillCancel(*Alert)              { r.add("will-cancel") }
func (r *recorder) DidCancel(*Alert)               { r.add("did-cancel") }
func (r *recorder) DidTransmitError(_ *Alert, err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.add("did-transmit-error")
}
func (r *recorder) AlertTriggered(_ *Alert, ev model.TriggerEvent) {
	r.mu.Lock()
	r.fires = append(r.fires, ev)
	r.mu.Unlock()
	r.add("triggered")
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *recorder) count(s string) int {
	n := 0
	for _, e := range r.list() {
		if e == s {
			n++
		}
	}
	return n
}

// notifications collects Notifier output.
type notifications struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *notifications) Notify(_ context.Context, x Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, x)
	return nil
}

func (n *notifications) kinds() []NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []NotificationKind
	for _, x := range n.sent {
		out = append(out, x.Kind)
	}
	return out
}

type fixture struct {
	manager  *Manager
	remote   *fakeRemote
	resolver *fakeResolver
	events   *recorder
	notes    *notifications
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		remote:   newFakeRemote(),
		resolver: newResolver(btc),
		events:   &recorder{},
		notes:    &notifications{},
	}
	if opts.Remote == nil {
		opts.Remote = f.remote
	}
	if opts.Resolver == nil {
		opts.Resolver = f.resolver
	}
	if opts.Notifier == nil {
		opts.Notifier = f.notes
	}
	f.manager = NewManager(opts)
	f.manager.Subscribe(f.events)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func key(m *model.Market) *model.MarketKey {
	k := m.Key()
	return &k
}

// desc builds a descriptor for market m.
func desc(uuid string, m *model.Market, status Status, value string) Descriptor {
	return Descriptor{
		UUID:      uuid,
		Market:    key(m),
		Type:      ptr(TypeLastPrice),
		Direction: ptr(DirectionAbove),
		Value:     ptr(dec(value)),
		Status:    ptr(status),
	}
}

func uuids(alerts []*Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.UUID())
	}
	return out
}

func errStub(msg string) error {
	return fmt.Errorf("stub: %s", msg)
}
