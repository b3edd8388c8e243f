// Package poller implements the Snapshot Poller component.
//
// The Snapshot Poller:
//   - Fetches the full alert list via REST while the stream is down
//   - Feeds it to the alert manager as a synthetic snapshot message
//   - Stays idle while the stream is connected, since the stream
//     delivers its own snapshot on every connect
package poller
