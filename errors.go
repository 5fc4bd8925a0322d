package vosc

import "errors"

var (
	// ErrInvalidParameters is returned by Prepare and Negotiate for a
	// parameter set the device cannot run. Device state is left unchanged.
	ErrInvalidParameters = errors.New("vosc: invalid parameters")
	// ErrBusy is returned by Open when the capture stream is already open.
	ErrBusy = errors.New("vosc: capture stream busy")
	// ErrNotOpen is returned when an operation needs an open stream.
	ErrNotOpen = errors.New("vosc: capture stream not open")
	// ErrBadState is returned for a transition the current state forbids.
	ErrBadState = errors.New("vosc: operation not allowed in current state")
	// ErrOverrun is returned when a reader fell more than one buffer behind
	// and captured data was overwritten.
	ErrOverrun = errors.New("vosc: capture overrun")
	// ErrClosed is returned by reads on a closed Stream.
	ErrClosed = errors.New("vosc: stream closed")
)
