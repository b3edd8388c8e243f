// Package writer persists alert trigger events to PostgreSQL.
//
// A Recorder observes the alert manager and queues one row per trigger.
// The TriggerWriter drains that queue in batches using append-only inserts:
// duplicate event ids are skipped with ON CONFLICT DO NOTHING, so replays
// after a reconnect are harmless.
package writer
