// Package alert implements the alert lifecycle state machine and the Manager
// that keeps local alerts consistent with the remote alerts service.
//
// Every mutation of an Alert or the Manager happens on one goroutine, the
// Executor (normally a Loop). Stream messages, market notifications, debounce
// timers and network completions are all submitted to it as closures. Network
// calls run on their own goroutines and post their completion back, so the
// state machine never needs locks:
//
//	stream frame -> router -> Loop.Submit(manager.Message)
//	alert.Transmit() -> goroutine POST -> Loop.Submit(complete) -> Future closed
//
// Status only ever advances along the lifecycle
//
//	pending -> transmitting -> open -> updating -> canceling -> canceled
//
// with expired reachable from open, updating and canceling. The two exceptions
// are the rollbacks applied when a request fails: transmitting -> pending and
// canceling -> open. Any other regression (a late completion, a stale or
// duplicate stream message) is dropped.
//
// Messages referencing a market that is not yet known are parked in the
// backlog and promoted to an Alert when the market is added.
package alert
