// Package app wires the daemon together.
//
// Startup order:
//  1. Database pool and schema (when enabled)
//  2. Market registry initial sync
//  3. Alert loop, trigger writer
//  4. Router, stream supervisor, snapshot poller
//  5. Status server
//
// Shutdown runs in reverse so the alert loop drains every routed message
// before the trigger writer makes its final flush.
package app
