package writer

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/router"
)

// TriggerWriter consumes TriggerRows from a queue and writes them to the
// alert_triggers table.
type TriggerWriter struct {
	cfg    Config
	logger *zap.Logger

	input *router.Queue[TriggerRow]
	db    DB

	// Batching
	batch   []TriggerRow
	batchMu sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewTriggerWriter creates a TriggerWriter.
func NewTriggerWriter(cfg Config, input *router.Queue[TriggerRow], db DB, logger *zap.Logger) *TriggerWriter {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriggerWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]TriggerRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming rows and writing to the database.
func (w *TriggerWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("trigger writer started",
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Duration("flush_interval", w.cfg.FlushInterval),
	)
	return nil
}

// Stop closes the input queue, writes whatever is left and waits for the
// loops to exit. The final flush runs on ctx.
func (w *TriggerWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping trigger writer")

	if w.cancel != nil {
		w.cancel()
	}
	w.input.Close()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("trigger writer stop timed out")
		return ctx.Err()
	}

	for _, row := range w.input.DrainTo(0) {
		w.add(row)
	}
	w.flush(ctx)

	w.logger.Info("trigger writer stopped", zap.Int64("inserts", w.Stats().Inserts))
	return nil
}

// Stats returns current metrics.
func (w *TriggerWriter) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the input queue and accumulates batches.
func (w *TriggerWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		row, ok := w.input.Receive(w.ctx)
		if !ok {
			return
		}
		if w.add(row) {
			w.flush(w.ctx)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *TriggerWriter) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		}
	}
}

// add appends row and reports whether the batch is full.
func (w *TriggerWriter) add(row TriggerRow) bool {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	return len(w.batch) >= w.cfg.BatchSize
}

// flush writes the current batch to the database. A done ctx leaves the
// batch in place for the final flush in Stop.
func (w *TriggerWriter) flush(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]TriggerRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", zap.Error(err), zap.Int("count", len(batch)))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed triggers",
		zap.Int("count", len(batch)),
		zap.Int("conflicts", conflicts),
		zap.Duration("duration", time.Since(start)),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *TriggerWriter) batchInsert(ctx context.Context, rows []TriggerRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSQL,
			r.EventUUID, r.AlertUUID, r.Exchange, r.Symbol, r.AlertType, r.Direction,
			r.Threshold, r.Price, r.TriggeredAt, r.ReceivedAt,
		)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
