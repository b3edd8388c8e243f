// Package server runs the status HTTP server: health, Prometheus metrics
// and read-only debug views of the alert manager.
package server
