package router

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/market-alerts/internal/alert"
	"github.com/rickgao/market-alerts/internal/connection"
)

// collector records handled messages.
type collector struct {
	mu   sync.Mutex
	msgs []alert.Message
}

func (c *collector) handle(m alert.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *collector) list() []alert.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]alert.Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// rejectExecutor refuses all work.
type rejectExecutor struct{}

func (rejectExecutor) Submit(func()) bool { return false }

func startRouter(t *testing.T, exec alert.Executor) (chan connection.RawMessage, *collector, Router) {
	t.Helper()
	input := make(chan connection.RawMessage, 10)
	c := &collector{}
	r := NewRouter(DefaultRouterConfig(), input, exec, c.handle, nil)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = r.Stop(ctx)
	})
	return input, c, r
}

func raw(data string, session int64) connection.RawMessage {
	return connection.RawMessage{Data: []byte(data), Session: session, ReceivedAt: time.Now()}
}

func TestDefaultRouterConfig(t *testing.T) {
	assert.Equal(t, 1000, DefaultRouterConfig().QueueSize)
}

func TestRouter_DispatchesInOrder(t *testing.T) {
	loop := alert.NewLoop(16, nil)
	require.NoError(t, loop.Start(context.Background()))
	defer loop.Stop(context.Background())

	input, c, r := startRouter(t, loop)

	input <- raw(`{"action":"snapshot","alerts":[{"uuid":"a-1","market":{"exchange":"coinbase","symbol":"BTC-USD"},"status":"open"}]}`, 1)
	input <- raw(`{"action":"created","alert":{"uuid":"a-2"}}`, 1)
	input <- raw(`{"action":"canceled","uuid":"a-1"}`, 1)
	input <- raw(`{"action":"triggered","event":{"uuid":"ev","alert":"a-2","price":"1.5"}}`, 1)

	require.Eventually(t, func() bool { return len(c.list()) == 4 }, time.Second, 5*time.Millisecond)

	got := c.list()
	assert.Equal(t, alert.ActionSnapshot, got[0].Action)
	require.Len(t, got[0].Alerts, 1)
	assert.Equal(t, "a-1", got[0].Alerts[0].UUID)
	assert.Equal(t, alert.ActionCreated, got[1].Action)
	assert.Equal(t, "a-1", got[2].UUID)
	assert.Equal(t, "1.5", got[3].Event.Price.String())

	require.Eventually(t, func() bool { return r.Stats().MessagesDispatched == 4 }, time.Second, 5*time.Millisecond)
	stats := r.Stats()
	assert.Equal(t, int64(4), stats.MessagesReceived)
	assert.Equal(t, int64(1), stats.ByAction[alert.ActionCanceled])
	assert.Equal(t, int64(1), stats.Session)
}

func TestRouter_InvalidMessages(t *testing.T) {
	input, c, r := startRouter(t, alert.InlineExecutor{})

	input <- raw(`{not json`, 1)
	input <- raw(`{"action":"created"}`, 1)
	input <- raw(`{"alerts":[]}`, 1)
	input <- raw(`{"action":"canceled","uuid":"a-1"}`, 1)

	require.Eventually(t, func() bool { return len(c.list()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(3), r.Stats().ParseErrors)
}

func TestRouter_UnknownActionSkipped(t *testing.T) {
	input, c, r := startRouter(t, alert.InlineExecutor{})

	input <- raw(`{"action":"filled","uuid":"a-1"}`, 2)
	input <- raw(`{"action":"canceled","uuid":"a-1"}`, 2)

	require.Eventually(t, func() bool { return len(c.list()) == 1 }, time.Second, 5*time.Millisecond)
	stats := r.Stats()
	assert.Equal(t, int64(1), stats.UnknownActions)
	assert.NotContains(t, stats.ByAction, alert.Action("filled"))
	assert.Equal(t, int64(1), stats.ByAction[alert.ActionCanceled])
	assert.Equal(t, int64(2), stats.Session)
	assert.Equal(t, alert.ActionCanceled, c.list()[0].Action)
}

func TestRouter_UnknownActionsShareOneCounter(t *testing.T) {
	input, c, r := startRouter(t, alert.InlineExecutor{})

	for i := 0; i < 50; i++ {
		input <- raw(fmt.Sprintf(`{"action":"junk-%d","uuid":"a-1"}`, i), 1)
	}
	input <- raw(`{"action":"canceled","uuid":"a-1"}`, 1)

	require.Eventually(t, func() bool { return len(c.list()) == 1 }, time.Second, 5*time.Millisecond)
	stats := r.Stats()
	assert.Equal(t, int64(50), stats.UnknownActions)
	assert.Len(t, stats.ByAction, 1)
}

func TestRouter_StopsWhenExecutorRejects(t *testing.T) {
	input, c, r := startRouter(t, rejectExecutor{})

	input <- raw(`{"action":"canceled","uuid":"a-1"}`, 1)

	require.Eventually(t, func() bool {
		return r.Stats().Queue.TotalSent == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, c.list())
	assert.Zero(t, r.Stats().MessagesDispatched)
}

func TestRouter_InputClosed(t *testing.T) {
	input := make(chan connection.RawMessage)
	r := NewRouter(RouterConfig{}, input, alert.InlineExecutor{}, func(alert.Message) {}, nil)
	require.NoError(t, r.Start(context.Background()))

	close(input)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, r.Stop(ctx))
}
