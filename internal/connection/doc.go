// Package connection implements the alert stream connection.
//
// The Supervisor:
//   - Maintains one authenticated WebSocket connection to the alert stream
//   - Handles reconnection with exponential backoff
//   - Forwards every frame, in order, to the Message Router
//   - Reports connection state to the snapshot poller and the status server
package connection
