package router

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/alert"
	"github.com/rickgao/market-alerts/internal/connection"
)

// Router decodes raw stream frames and dispatches them to the alert loop.
type Router interface {
	// Start begins routing messages from the input channel.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the router.
	Stop(ctx context.Context) error

	// Stats returns current router statistics.
	Stats() RouterStats
}

// router is the internal implementation.
type router struct {
	cfg    RouterConfig
	logger *zap.Logger

	// Input from the stream Supervisor
	input <-chan connection.RawMessage

	// Output to the alert loop
	queue    *Queue[Inbound]
	executor alert.Executor
	handle   Handler

	// Lifecycle
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.RWMutex
	received    int64
	dispatched  int64
	parseErrors int64
	unknown     int64
	byAction    map[alert.Action]int64
	session     int64
}

// NewRouter creates a new Message Router. handle runs on executor.
func NewRouter(cfg RouterConfig, input <-chan connection.RawMessage, executor alert.Executor, handle Handler, logger *zap.Logger) Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultRouterConfig().QueueSize
	}

	return &router{
		cfg:      cfg,
		logger:   logger,
		input:    input,
		queue:    NewQueue[Inbound](cfg.QueueSize),
		executor: executor,
		handle:   handle,
		byAction: make(map[alert.Action]int64),
	}
}

// Start begins routing messages.
func (r *router) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.routeLoop(ctx)
	}()
	go func() {
		defer r.wg.Done()
		r.dispatchLoop(ctx)
	}()

	r.logger.Info("message router started", zap.Int("queue_size", r.cfg.QueueSize))

	return nil
}

// Stop gracefully shuts down the router.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping message router")

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
		r.logger.Info("message router stopped", zap.Int("undispatched", r.queue.Len()))
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
	}

	r.queue.Close()

	return nil
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byAction := make(map[alert.Action]int64, len(r.byAction))
	for k, v := range r.byAction {
		byAction[k] = v
	}

	return RouterStats{
		MessagesReceived:   r.received,
		MessagesDispatched: r.dispatched,
		ParseErrors:        r.parseErrors,
		UnknownActions:     r.unknown,
		ByAction:           byAction,
		Session:            r.session,
		Queue:              r.queue.Stats(),
	}
}

// routeLoop decodes frames into the queue.
func (r *router) routeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				return
			}
			r.route(raw)
		}
	}
}

// route decodes a single frame.
func (r *router) route(raw connection.RawMessage) {
	r.mu.Lock()
	r.received++
	if raw.Session != r.session {
		r.logger.Info("new stream session", zap.Int64("session", raw.Session))
		r.session = raw.Session
	}
	r.mu.Unlock()

	msg, err := alert.DecodeMessage(raw.Data)
	if err != nil {
		r.logger.Warn("failed to decode stream message",
			zap.Error(err),
			zap.Int("len", len(raw.Data)),
		)
		r.mu.Lock()
		r.parseErrors++
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	if msg.Action.Known() {
		r.byAction[msg.Action]++
	} else {
		r.unknown++
	}
	r.mu.Unlock()

	if !msg.Action.Known() {
		r.logger.Debug("skipping message action", zap.String("action", string(msg.Action)))
		return
	}

	r.queue.Send(Inbound{
		Message:    msg,
		Session:    raw.Session,
		ReceivedAt: raw.ReceivedAt,
	})
}

// dispatchLoop submits queued messages to the executor in order.
func (r *router) dispatchLoop(ctx context.Context) {
	for {
		in, ok := r.queue.Receive(ctx)
		if !ok {
			return
		}

		msg := in.Message
		if !r.executor.Submit(func() { r.handle(msg) }) {
			r.logger.Warn("alert loop stopped, dropping message",
				zap.String("action", string(msg.Action)),
			)
			return
		}

		r.mu.Lock()
		r.dispatched++
		r.mu.Unlock()
	}
}
