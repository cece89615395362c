package profile

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrAlreadyBegun is returned by Begin on a group that was already begun.
	ErrAlreadyBegun = errors.New("counter group already begun")
	// ErrClosed is returned when a group is used after End.
	ErrClosed = errors.New("counter group closed")
	// ErrUnsupported is returned by the kernel interface on platforms without perf events.
	ErrUnsupported = errors.New("perf events are only supported on linux")
	// ErrShortRead is returned when a grouped read does not cover every counter.
	ErrShortRead = errors.New("short grouped read")
)

// OpenError reports a counter that could not be opened. The group is unusable
// after it, a missing counter would skew every delta that follows.
type OpenError struct {
	Event Event
	Err   error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("error opening %s (config 0x%x): perf_event_open: %v", e.Event.Name, e.Event.Config, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Hint explains the underlying errno the way perf_event_open(2) documents it,
// or returns an empty string.
func (e *OpenError) Hint() string {
	var errno syscall.Errno
	if !errors.As(e.Err, &errno) {
		return ""
	}
	return openErrorHints[errno]
}
