package alert

import "errors"

// Precondition errors returned synchronously by Transmit and Cancel.
var (
	ErrNotPending    = errors.New("alert: not pending")
	ErrNoMarket      = errors.New("alert: no market")
	ErrInvalidAlert  = errors.New("alert: invalid alert")
	ErrNotCancelable = errors.New("alert: not cancelable")
)

var (
	// ErrMalformedMessage is returned by DecodeMessage for frames that cannot
	// be applied.
	ErrMalformedMessage = errors.New("alert: malformed message")

	// ErrExecutorStopped resolves a Future whose completion could not be
	// posted because the executor shut down.
	ErrExecutorStopped = errors.New("alert: executor stopped")
)
