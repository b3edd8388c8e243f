// Package router implements the Message Router component.
//
// The Message Router:
//   - Receives raw frames from the stream Supervisor
//   - Decodes and validates them as alert messages
//   - Queues decoded messages so the socket reader never waits on the loop
//   - Dispatches each message onto the alert event loop in arrival order
package router
