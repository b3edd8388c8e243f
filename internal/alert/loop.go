package alert

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Executor runs closures one at a time. Submit reports false once the
// executor no longer accepts work.
type Executor interface {
	Submit(fn func()) bool
}

// InlineExecutor runs fn on the caller's goroutine. Callers are responsible
// for serializing access; it exists for tests and single-goroutine tools.
type InlineExecutor struct{}

// Submit runs fn immediately.
func (InlineExecutor) Submit(fn func()) bool {
	fn()
	return true
}

// DefaultLoopBuffer is the task queue capacity of a Loop.
const DefaultLoopBuffer = 1024

// Loop is the event loop that owns all alert state.
type Loop struct {
	tasks  chan func()
	logger *zap.Logger

	mu      sync.RWMutex
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLoop creates a Loop with the given queue capacity.
func NewLoop(buffer int, logger *zap.Logger) *Loop {
	if buffer <= 0 {
		buffer = DefaultLoopBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		tasks:  make(chan func(), buffer),
		logger: logger,
	}
}

// Start begins processing tasks.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("loop already started")
	}
	l.started = true
	l.ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(1)
	go l.run()

	l.logger.Info("alert loop started", zap.Int("buffer", cap(l.tasks)))
	return nil
}

// Stop stops accepting tasks, drains what is queued and waits for the loop
// goroutine to exit.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	started := l.started
	l.mu.Unlock()

	if !started {
		return nil
	}

	l.cancel()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.logger.Info("alert loop stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues fn. It blocks while the queue is full and returns false if
// the loop is stopped.
func (l *Loop) Submit(fn func()) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.stopped || !l.started || l.ctx.Err() != nil {
		return false
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Submit(func() {
		defer close(done)
		fn()
	}) {
		return ErrExecutorStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) run() {
	defer l.wg.Done()

	for {
		select {
		case fn := <-l.tasks:
			l.exec(fn)
		case <-l.ctx.Done():
			l.drain()
			return
		}
	}
}

// drain runs tasks queued before Stop so pending Futures resolve.
func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.tasks:
			l.exec(fn)
		default:
			return
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("alert loop task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}
