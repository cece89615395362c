package profile

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// State is the lifecycle position of a Group.
type State int

const (
	Uninitialized State = iota
	Opened
	Started
	Stopped
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Opened:
		return "opened"
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configure a Group.
type Options struct {
	// Sys is the kernel interface, System() when nil.
	Sys Sys
	// Lookup decides event selection, os.LookupEnv when nil.
	Lookup func(string) (string, bool)
	// PID to measure, 0 is the calling thread.
	PID int
	// Inherit counts threads and child processes created after Begin.
	Inherit bool
	// Log receives debug output, the logrus standard logger when nil.
	Log logrus.FieldLogger
}

// Group is a set of counters that the kernel resets, enables, disables and
// reads as one unit through its leader, the first counter opened.
//
// A Group is not safe for concurrent use. Calling Start, Snap or Stop out of
// order is not detected; the snapshots simply reflect whatever the counters
// held at the time.
type Group struct {
	sys     Sys
	lookup  func(string) (string, bool)
	pid     int
	inherit bool
	log     logrus.FieldLogger

	state  State
	events []Event
	fds    []int
	buf    []byte
	start  []uint64
	last   []uint64
}

// New returns an Uninitialized group.
func New(opts Options) *Group {
	g := &Group{
		sys:     opts.Sys,
		lookup:  opts.Lookup,
		pid:     opts.PID,
		inherit: opts.Inherit,
		log:     opts.Log,
	}
	if g.sys == nil {
		g.sys = System()
	}
	if g.lookup == nil {
		g.lookup = os.LookupEnv
	}
	if g.log == nil {
		g.log = logrus.StandardLogger()
	}
	return g
}

// State returns the lifecycle position of the group.
func (g *Group) State() State {
	return g.state
}

// Events returns the selected events in open order. It is empty before Begin.
func (g *Group) Events() []Event {
	out := make([]Event, len(g.events))
	copy(out, g.events)
	return out
}

func (g *Group) leader() int {
	return g.fds[0]
}

// Begin selects events, opens one counter per selected event with the first
// one as leader and resets the whole group. On failure every counter opened so
// far is closed and the group stays Uninitialized. Open failures are returned
// as *OpenError.
func (g *Group) Begin() error {
	switch g.state {
	case Uninitialized:
	case Closed:
		return ErrClosed
	default:
		return ErrAlreadyBegun
	}

	selected := Select(g.lookup)
	fds := make([]int, 0, len(selected))
	for _, e := range selected {
		groupFD := -1
		if len(fds) > 0 {
			groupFD = fds[0]
		}

		fd, err := g.sys.Open(e, OpenOptions{PID: g.pid, GroupFD: groupFD, Inherit: g.inherit})
		if err != nil {
			closeReverse(g.sys, fds)
			return &OpenError{Event: e, Err: err}
		}
		g.log.WithFields(logrus.Fields{
			"event":  e.Name,
			"config": e.Config,
			"fd":     fd,
			"leader": groupFD == -1,
		}).Debug("opened counter")
		fds = append(fds, fd)
	}

	if len(fds) > 0 {
		if err := g.sys.Ioctl(fds[0], OpReset); err != nil {
			closeReverse(g.sys, fds)
			return fmt.Errorf("reset group: %w", err)
		}
	}

	g.events = selected
	g.fds = fds
	g.buf = make([]byte, 8*(1+len(fds)))
	g.start = make([]uint64, len(fds))
	g.last = make([]uint64, len(fds))
	g.state = Opened
	return nil
}

// Start enables every counter through the leader and takes the baseline snapshot.
func (g *Group) Start() error {
	if g.state == Closed {
		return ErrClosed
	}
	g.state = Started
	if len(g.fds) == 0 {
		return nil
	}

	if err := g.sys.Ioctl(g.leader(), OpEnable); err != nil {
		return fmt.Errorf("enable group: %w", err)
	}
	if err := g.read(g.start); err != nil {
		return fmt.Errorf("baseline snapshot: %w", err)
	}
	return nil
}

// Snap takes an intermediate snapshot without disabling the counters. The
// result of a later Stop does not depend on it.
func (g *Group) Snap() error {
	if g.state == Closed {
		return ErrClosed
	}
	if len(g.fds) == 0 {
		return nil
	}
	if err := g.read(g.last); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// Stop takes the final snapshot and then disables every counter through the
// leader, so the measured interval ends at the read.
func (g *Group) Stop() error {
	if g.state == Closed {
		return ErrClosed
	}
	g.state = Stopped
	if len(g.fds) == 0 {
		return nil
	}

	if err := g.read(g.last); err != nil {
		return fmt.Errorf("final snapshot: %w", err)
	}
	if err := g.sys.Ioctl(g.leader(), OpDisable); err != nil {
		return fmt.Errorf("disable group: %w", err)
	}
	return nil
}

// End closes every counter, last opened first, so the leader goes last. The
// group cannot be begun again.
func (g *Group) End() error {
	if g.state == Closed {
		return nil
	}
	err := closeReverse(g.sys, g.fds)
	g.fds = nil
	g.state = Closed
	return err
}

// read decodes one grouped read of the leader into dst:
// u64 nr; u64 values[nr].
func (g *Group) read(dst []uint64) error {
	n, err := g.sys.Read(g.leader(), g.buf)
	if err != nil {
		return err
	}
	if n < 8 {
		return fmt.Errorf("%w: got %d bytes", ErrShortRead, n)
	}

	nr := binary.NativeEndian.Uint64(g.buf)
	if nr != uint64(len(dst)) || n < 8*(1+len(dst)) {
		return fmt.Errorf("%w: got %d counters in %d bytes, want %d", ErrShortRead, nr, n, len(dst))
	}
	for i := range dst {
		dst[i] = binary.NativeEndian.Uint64(g.buf[8*(i+1):])
	}
	return nil
}

func closeReverse(sys Sys, fds []int) error {
	var first error
	for i := len(fds) - 1; i >= 0; i-- {
		if err := sys.Close(fds[i]); err != nil && first == nil {
			first = fmt.Errorf("close counter fd %d: %w", fds[i], err)
		}
	}
	return first
}
