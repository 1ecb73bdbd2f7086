package engine

import (
	"errors"

	"ampd/pkg/types"
)

// ErrClosed is returned by operations on an engine whose worker has been
// shut down.
var ErrClosed = errors.New("engine: closed")

// unknownResourceError signals a resource id outside the six addressable
// resources.
type unknownResourceError struct{ id types.ResourceID }

func (e unknownResourceError) Error() string { return "unknown resource: " + string(e.id) }

// ErrUnknownResource constructs an unknownResourceError.
func ErrUnknownResource(id types.ResourceID) error { return unknownResourceError{id: id} }

// IsUnknownResource reports whether err indicates an unaddressable resource id.
func IsUnknownResource(err error) bool {
	var e unknownResourceError
	return errors.As(err, &e)
}

// tooBusyError signals a full control-event queue for backpressure mapping.
type tooBusyError struct{}

func (tooBusyError) Error() string { return "too busy: control event queue full" }

// ErrTooBusy is returned by PushEvent when the inbound queue is full.
var ErrTooBusy error = tooBusyError{}

// IsTooBusy reports whether err indicates host-side backpressure.
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}
