package connection

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Supervisor keeps one stream connection open and forwards its frames.
type Supervisor struct {
	cfg       SupervisorConfig
	logger    *zap.Logger
	newClient func(ClientConfig, *zap.Logger) Client

	out chan RawMessage

	connected     atomic.Bool
	session       atomic.Int64
	connects      atomic.Int64
	connectErrors atomic.Int64
	disconnects   atomic.Int64
	messages      atomic.Int64
	lastMessageAt atomic.Int64 // unix nanos

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(cfg SupervisorConfig, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultSupervisorConfig()
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = def.ReconnectBaseWait
	}
	if cfg.ReconnectMaxWait < cfg.ReconnectBaseWait {
		cfg.ReconnectMaxWait = cfg.ReconnectBaseWait
	}
	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = def.MessageBufferSize
	}

	return &Supervisor{
		cfg:       cfg,
		logger:    logger,
		newClient: NewClient,
		out:       make(chan RawMessage, cfg.MessageBufferSize),
	}
}

// Start begins connecting in the background.
func (s *Supervisor) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()

	s.logger.Info("stream supervisor started", zap.String("url", s.cfg.Client.URL))
	return nil
}

// Stop closes the connection and waits for the supervisor to exit.
func (s *Supervisor) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("stream supervisor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns the channel of frames from every session in order.
func (s *Supervisor) Messages() <-chan RawMessage {
	return s.out
}

// IsConnected reports whether a session is currently open.
func (s *Supervisor) IsConnected() bool {
	return s.connected.Load()
}

// Stats returns connection counters.
func (s *Supervisor) Stats() SupervisorStats {
	st := SupervisorStats{
		Connected:     s.connected.Load(),
		Connects:      s.connects.Load(),
		ConnectErrors: s.connectErrors.Load(),
		Disconnects:   s.disconnects.Load(),
		Messages:      s.messages.Load(),
	}
	if ns := s.lastMessageAt.Load(); ns > 0 {
		st.LastMessageAt = time.Unix(0, ns)
	}
	return st
}

func (s *Supervisor) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.ReconnectBaseWait
	b.MaxInterval = s.cfg.ReconnectMaxWait
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// run connects, pumps, and reconnects with exponential backoff until ctx
// is done.
func (s *Supervisor) run(ctx context.Context) {
	b := s.newBackoff()

	for ctx.Err() == nil {
		session := s.session.Load() + 1
		logger := s.logger.With(zap.Int64("session", session))
		client := s.newClient(s.cfg.Client, logger)

		if err := client.Connect(ctx); err != nil {
			s.connectErrors.Add(1)
			wait := b.NextBackOff()
			logger.Warn("stream connect failed",
				zap.Error(err),
				zap.Duration("retry_in", wait),
			)
			if !sleep(ctx, wait) {
				return
			}
			continue
		}

		b.Reset()
		s.session.Store(session)
		s.connects.Add(1)
		s.connected.Store(true)
		logger.Info("stream connected")

		err := s.pump(ctx, client, session)

		s.connected.Store(false)
		_ = client.Close()
		if ctx.Err() != nil {
			return
		}

		s.disconnects.Add(1)
		wait := b.NextBackOff()
		logger.Warn("stream disconnected",
			zap.Error(err),
			zap.Duration("retry_in", wait),
		)
		if !sleep(ctx, wait) {
			return
		}
	}
}

// pump forwards frames until the client fails or ctx is done. Frames
// received before a failure are forwarded before it is reported.
func (s *Supervisor) pump(ctx context.Context, client Client, session int64) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-client.Errors():
			for {
				select {
				case msg := <-client.Messages():
					if !s.forward(ctx, msg, session) {
						return ctx.Err()
					}
				default:
					return err
				}
			}

		case msg := <-client.Messages():
			if !s.forward(ctx, msg, session) {
				return ctx.Err()
			}
		}
	}
}

func (s *Supervisor) forward(ctx context.Context, msg TimestampedMessage, session int64) bool {
	raw := RawMessage{
		Data:       msg.Data,
		Session:    session,
		ReceivedAt: msg.ReceivedAt,
	}

	select {
	case s.out <- raw:
		s.messages.Add(1)
		s.lastMessageAt.Store(msg.ReceivedAt.UnixNano())
		return true
	case <-ctx.Done():
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
