package writer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Config contains configuration for the trigger writer.
type Config struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the initial capacity of the row queue.
	BufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1000,
	}
}

// Metrics tracks writer performance.
type Metrics struct {
	Inserts   int64 // Rows written
	Conflicts int64 // Rows skipped as duplicates
	Flushes   int64 // Successful batch writes
	Errors    int64 // Failed batch writes
}

// DB is the subset of *pgxpool.Pool the writer uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// TriggerRow is one row of the alert_triggers table.
type TriggerRow struct {
	EventUUID   string
	AlertUUID   string
	Exchange    string
	Symbol      string
	AlertType   string
	Direction   string
	Threshold   pgtype.Numeric
	Price       pgtype.Numeric
	TriggeredAt time.Time
	ReceivedAt  time.Time
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS alert_triggers (
	event_uuid   TEXT PRIMARY KEY,
	alert_uuid   TEXT NOT NULL,
	exchange     TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	alert_type   TEXT NOT NULL,
	direction    TEXT NOT NULL,
	threshold    NUMERIC NOT NULL,
	price        NUMERIC NOT NULL,
	triggered_at TIMESTAMPTZ NOT NULL,
	received_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS alert_triggers_alert_idx ON alert_triggers (alert_uuid, triggered_at DESC);
`

const insertSQL = `
	INSERT INTO alert_triggers (event_uuid, alert_uuid, exchange, symbol, alert_type, direction, threshold, price, triggered_at, received_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (event_uuid) DO NOTHING
`

// EnsureSchema creates the alert_triggers table if it does not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	_, err := db.Exec(ctx, schemaSQL)
	return err
}
