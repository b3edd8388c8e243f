package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rickgao/market-alerts/internal/alert"
	"github.com/rickgao/market-alerts/internal/auth"
	"github.com/rickgao/market-alerts/internal/config"
	"github.com/rickgao/market-alerts/internal/market"
	"github.com/rickgao/market-alerts/internal/model"
)

const (
	marketsJSON = `{"markets":[{"id":"m-btc","exchange":"coinbase","exchange_name":"Coinbase","symbol":"BTC-USD","price_precision":2,"amount_precision":4,"status":"active"}],"cursor":""}`

	snapshotJSON = `{"action":"snapshot","alerts":[
		{"uuid":"a-1","market":{"exchange":"coinbase","symbol":"BTC-USD"},"type":"last-price","direction":"above","value":"10","status":"open"},
		{"uuid":"a-2","market":{"exchange":"kraken","symbol":"ETH-USD"},"type":"last-price","direction":"below","value":"5","status":"open"}
	]}`

	triggerJSON = `{"action":"triggered","event":{"uuid":"ev-1","alert":"a-1","price":"10.5"}}`
)

// fakeService serves the markets REST endpoint and an alert stream that
// sends a snapshot and one trigger on connect.
func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	mux := http.NewServeMux()
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(marketsJSON))
	})
	mux.HandleFunc("/alerts", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"alerts":[]}`))
	})
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(snapshotJSON))
		conn.WriteMessage(websocket.TextMessage, []byte(triggerJSON))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T, srv *httptest.Server) *config.Config {
	t.Helper()
	yaml := fmt.Sprintf(`
instance:
  id: test
api:
  rest_url: %s
  ws_url: %s
  token: test-token
stream:
  reconnect_base_delay: 50ms
  reconnect_max_delay: 200ms
poller:
  enabled: true
  interval: 1h
server:
  port: %d
`, srv.URL, "ws"+strings.TrimPrefix(srv.URL, "http")+"/stream", freePort(t))

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := config.LoadAndValidate(context.Background(), path)
	require.NoError(t, err)
	return cfg
}

func TestRun(t *testing.T) {
	srv := fakeService(t)
	cfg := testConfig(t, srv)

	a, err := New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var alerts, backlog int
	var last *model.TriggerEvent
	require.Eventually(t, func() bool {
		err := a.Loop().Do(ctx, func() {
			alerts = len(a.Manager().All())
			backlog = len(a.Manager().Backlog())
			if x := a.Manager().Find("a-1"); x != nil {
				last = x.Last()
			}
		})
		return err == nil && alerts == 1 && backlog == 1 && last != nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "ev-1", last.UUID)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", cfg.Server.Port))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunFailsWhenMarketsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad token"}`))
	}))
	defer srv.Close()

	a, err := New(testConfig(t, srv), nil)
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start market registry")
}

func TestTokenProvider(t *testing.T) {
	p, err := TokenProvider(config.APIConfig{Token: "abc"})
	require.NoError(t, err)
	assert.Equal(t, auth.Static("abc"), p)

	p, err = TokenProvider(config.APIConfig{JWTSecret: "secret", JWTSubject: "alerts-1", JWTTTL: time.Minute})
	require.NoError(t, err)
	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	claims, err := auth.Parse(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, "alerts-1", claims.Subject)

	_, err = TokenProvider(config.APIConfig{JWTSecret: "secret"})
	assert.ErrorContains(t, err, "create token signer")

	p, err = TokenProvider(config.APIConfig{})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := logNotifier{logger: zap.New(core)}

	require.NoError(t, n.Notify(context.Background(), alert.Notification{
		Kind:  alert.NotifyTriggered,
		Alert: "a-1",
		Title: "Alert Triggered",
		Body:  "BTC-USD rose above 10",
	}))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Alert Triggered", entry.Message)
	assert.Equal(t, "triggered", entry.ContextMap()["kind"])
	assert.Equal(t, "a-1", entry.ContextMap()["alert"])
}

type rejectExecutor struct{}

func (rejectExecutor) Submit(func()) bool { return false }

func TestBridgeMarkets(t *testing.T) {
	btc := &model.Market{Exchange: model.Exchange{ID: "coinbase"}, Symbol: "BTC-USD", Precision: model.Precision{Price: 2}, Active: true}
	eth := &model.Market{Exchange: model.Exchange{ID: "kraken"}, Symbol: "ETH-USD", Precision: model.Precision{Price: 2}, Active: true}
	known := map[model.MarketKey]*model.Market{btc.Key(): btc}

	mgr := alert.NewManager(alert.Options{
		Resolver: alert.ResolverFunc(func(exchange, symbol string) (*model.Market, bool) {
			m, ok := known[model.MarketKey{Exchange: exchange, Symbol: symbol}]
			return m, ok
		}),
	})
	mgr.Message(alert.Message{Action: alert.ActionSnapshot, Alerts: []alert.Descriptor{
		{UUID: "a-1", Market: &model.MarketKey{Exchange: "coinbase", Symbol: "BTC-USD"}},
		{UUID: "a-2", Market: &model.MarketKey{Exchange: "kraken", Symbol: "ETH-USD"}},
	}})
	require.Len(t, mgr.Backlog(), 1)

	changes := make(chan market.MarketChange, 4)
	known[eth.Key()] = eth
	inactive := *eth
	inactive.Active = false
	changes <- market.MarketChange{Key: eth.Key(), EventType: market.EventStatusChange, Market: &inactive}
	changes <- market.MarketChange{Key: eth.Key(), EventType: market.EventCreated, Market: eth}
	changes <- market.MarketChange{Key: btc.Key(), EventType: market.EventRemoved}
	close(changes)

	require.NoError(t, bridgeMarkets(context.Background(), changes, nil, alert.InlineExecutor{}, mgr, zap.NewNop()))

	assert.Empty(t, mgr.Backlog())
	require.Len(t, mgr.All(), 1)
	assert.Equal(t, "a-2", mgr.All()[0].UUID())
}

func TestBridgeMarketsPromotesInactiveMarket(t *testing.T) {
	halted := &model.Market{Exchange: model.Exchange{ID: "kraken"}, Symbol: "SOL-USD", Precision: model.Precision{Price: 2}}
	known := map[model.MarketKey]*model.Market{}

	mgr := alert.NewManager(alert.Options{
		Resolver: alert.ResolverFunc(func(exchange, symbol string) (*model.Market, bool) {
			m, ok := known[model.MarketKey{Exchange: exchange, Symbol: symbol}]
			return m, ok
		}),
	})
	mgr.Message(alert.Message{Action: alert.ActionCreated, Alert: &alert.Descriptor{
		UUID:   "a-1",
		Market: &model.MarketKey{Exchange: "kraken", Symbol: "SOL-USD"},
	}})
	require.Len(t, mgr.Backlog(), 1)

	known[halted.Key()] = halted
	changes := make(chan market.MarketChange, 1)
	changes <- market.MarketChange{Key: halted.Key(), EventType: market.EventCreated, Market: halted}
	close(changes)

	require.NoError(t, bridgeMarkets(context.Background(), changes, nil, alert.InlineExecutor{}, mgr, zap.NewNop()))

	assert.Empty(t, mgr.Backlog())
	require.Len(t, mgr.All(), 1)
	assert.Same(t, halted, mgr.All()[0].Market())
}

func TestBridgeMarketsResolvesBacklogAfterDrops(t *testing.T) {
	btc := &model.Market{Exchange: model.Exchange{ID: "coinbase"}, Symbol: "BTC-USD", Precision: model.Precision{Price: 2}, Active: true}
	eth := &model.Market{Exchange: model.Exchange{ID: "kraken"}, Symbol: "ETH-USD", Precision: model.Precision{Price: 2}, Active: true}
	known := map[model.MarketKey]*model.Market{}

	mgr := alert.NewManager(alert.Options{
		Resolver: alert.ResolverFunc(func(exchange, symbol string) (*model.Market, bool) {
			m, ok := known[model.MarketKey{Exchange: exchange, Symbol: symbol}]
			return m, ok
		}),
	})
	mgr.Message(alert.Message{Action: alert.ActionSnapshot, Alerts: []alert.Descriptor{
		{UUID: "a-1", Market: &model.MarketKey{Exchange: "coinbase", Symbol: "BTC-USD"}},
		{UUID: "a-2", Market: &model.MarketKey{Exchange: "kraken", Symbol: "ETH-USD"}},
	}})
	require.Len(t, mgr.Backlog(), 2)

	// The created change for btc was lost; only eth's arrives.
	known[btc.Key()] = btc
	known[eth.Key()] = eth
	changes := make(chan market.MarketChange, 1)
	changes <- market.MarketChange{Key: eth.Key(), EventType: market.EventCreated, Market: eth}
	close(changes)

	dropped := func() int64 { return 1 }
	require.NoError(t, bridgeMarkets(context.Background(), changes, dropped, alert.InlineExecutor{}, mgr, zap.NewNop()))

	assert.Empty(t, mgr.Backlog())
	assert.Len(t, mgr.All(), 2)
}

func TestBridgeMarketsStops(t *testing.T) {
	mgr := alert.NewManager(alert.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, bridgeMarkets(ctx, make(chan market.MarketChange), nil, alert.InlineExecutor{}, mgr, zap.NewNop()))

	changes := make(chan market.MarketChange, 1)
	changes <- market.MarketChange{Key: model.MarketKey{Exchange: "x", Symbol: "y"}, EventType: market.EventRemoved}
	assert.NoError(t, bridgeMarkets(context.Background(), changes, nil, rejectExecutor{}, mgr, zap.NewNop()))
}
