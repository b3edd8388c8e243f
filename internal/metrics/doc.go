// Package metrics exposes Prometheus metrics for the alerts daemon.
//
// Key metrics:
//   - Alert lifecycle events: creates, destroys, status changes, triggers
//   - Remote transmit and cancel outcomes
//   - Alert and backlog counts from the manager
//   - Stream connection state and message rates
//   - Router queue depth and parse errors
//   - Market catalog size and dropped change notifications
//   - Trigger writer inserts and failures
package metrics
