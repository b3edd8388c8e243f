package writer

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/alert"
	"github.com/rickgao/market-alerts/internal/model"
	"github.com/rickgao/market-alerts/internal/router"
)

// Recorder turns trigger events into rows on a queue. It runs on the
// alert loop, so it only enqueues.
type Recorder struct {
	alert.NopObserver

	queue   *router.Queue[TriggerRow]
	logger  *zap.Logger
	now     func() time.Time
	dropped atomic.Int64
}

// NewRecorder creates a Recorder feeding queue.
func NewRecorder(queue *router.Queue[TriggerRow], logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{queue: queue, logger: logger, now: time.Now}
}

// AlertTriggered implements alert.Observer.
func (r *Recorder) AlertTriggered(a *alert.Alert, ev model.TriggerEvent) {
	row := r.transform(a, ev)
	if !r.queue.Send(row) {
		r.dropped.Add(1)
		r.logger.Warn("trigger dropped, writer stopped",
			zap.String("event", row.EventUUID),
			zap.String("alert", row.AlertUUID),
		)
	}
}

// Dropped returns the number of rows rejected by a closed queue.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) transform(a *alert.Alert, ev model.TriggerEvent) TriggerRow {
	row := TriggerRow{
		EventUUID:   ev.UUID,
		AlertUUID:   a.UUID(),
		AlertType:   string(a.Type()),
		Direction:   string(a.Direction()),
		Threshold:   toNumeric(ev.Value),
		Price:       toNumeric(ev.Price),
		TriggeredAt: ev.Created.Time,
		ReceivedAt:  r.now().UTC(),
	}
	if ev.Alert != "" {
		row.AlertUUID = ev.Alert
	}
	if ev.Value.IsZero() {
		row.Threshold = toNumeric(a.Value())
	}
	if m := a.Market(); m != nil {
		row.Exchange = m.Exchange.ID
		row.Symbol = m.Symbol
	}
	if row.TriggeredAt.IsZero() {
		row.TriggeredAt = row.ReceivedAt
	}
	if row.EventUUID == "" {
		// Same alert and time always map to the same id.
		name := row.AlertUUID + "|" + row.TriggeredAt.UTC().Format(time.RFC3339Nano)
		row.EventUUID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
	}
	return row
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
