// Package profiletest provides an in-memory profile.Sys for tests that must
// not depend on a PMU being available.
package profiletest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"syscall"

	"github.com/napolitain/selfprofile/profile"
)

// Call records one operation issued against the fake.
type Call struct {
	Op      string
	FD      int
	Event   profile.Event
	GroupFD int
	Inherit bool
}

type counter struct {
	event   profile.Event
	leader  int
	enabled bool
	value   uint64
}

// Fake simulates perf counters. Counters only move when Tick is called, which
// stands in for the measured workload.
type Fake struct {
	Calls []Call
	// Step is the amount an enabled counter grows per Tick, 1 when absent.
	Step map[string]uint64
	// Fail makes Open fail for the named events.
	Fail map[string]error

	nextFD   int
	counters map[int]*counter
	order    []int
}

// New returns a Fake handing out fds starting at 3.
func New() *Fake {
	return &Fake{
		Step:     map[string]uint64{},
		Fail:     map[string]error{},
		nextFD:   3,
		counters: map[int]*counter{},
	}
}

// Open implements profile.Sys.
func (f *Fake) Open(e profile.Event, opts profile.OpenOptions) (int, error) {
	f.Calls = append(f.Calls, Call{Op: "open", Event: e, GroupFD: opts.GroupFD, Inherit: opts.Inherit})
	if err, ok := f.Fail[e.Name]; ok {
		return -1, err
	}
	leader := opts.GroupFD
	if leader != -1 {
		if _, ok := f.counters[leader]; !ok {
			return -1, syscall.EBADF
		}
	}

	fd := f.nextFD
	f.nextFD++
	if leader == -1 {
		leader = fd
	}
	f.counters[fd] = &counter{event: e, leader: leader}
	f.order = append(f.order, fd)
	f.Calls[len(f.Calls)-1].FD = fd
	return fd, nil
}

// Ioctl implements profile.Sys, applying op to every counter of the group.
func (f *Fake) Ioctl(fd int, op profile.Op) error {
	f.Calls = append(f.Calls, Call{Op: op.String(), FD: fd})
	c, ok := f.counters[fd]
	if !ok {
		return syscall.EBADF
	}
	if c.leader != fd {
		return fmt.Errorf("fake: %s on non-leader fd %d", op, fd)
	}
	for _, m := range f.members(fd) {
		switch op {
		case profile.OpReset:
			m.value = 0
		case profile.OpEnable:
			m.enabled = true
		case profile.OpDisable:
			m.enabled = false
		}
	}
	return nil
}

// Read implements profile.Sys with the PERF_FORMAT_GROUP layout.
func (f *Fake) Read(fd int, p []byte) (int, error) {
	f.Calls = append(f.Calls, Call{Op: "read", FD: fd})
	if _, ok := f.counters[fd]; !ok {
		return 0, syscall.EBADF
	}
	members := f.members(fd)
	size := 8 * (1 + len(members))
	if len(p) < size {
		return 0, syscall.ENOSPC
	}
	binary.NativeEndian.PutUint64(p, uint64(len(members)))
	for i, m := range members {
		binary.NativeEndian.PutUint64(p[8*(i+1):], m.value)
	}
	return size, nil
}

// Close implements profile.Sys.
func (f *Fake) Close(fd int) error {
	f.Calls = append(f.Calls, Call{Op: "close", FD: fd})
	if _, ok := f.counters[fd]; !ok {
		return syscall.EBADF
	}
	delete(f.counters, fd)
	return nil
}

// Tick advances every enabled counter by its Step.
func (f *Fake) Tick() {
	for _, c := range f.counters {
		if c.enabled {
			c.value += f.step(c.event.Name)
		}
	}
}

// Enabled reports whether the counter behind fd is enabled.
func (f *Fake) Enabled(fd int) bool {
	c, ok := f.counters[fd]
	return ok && c.enabled
}

// OpenFDs returns the fds that are still open, in open order.
func (f *Fake) OpenFDs() []int {
	var fds []int
	for _, fd := range f.order {
		if _, ok := f.counters[fd]; ok {
			fds = append(fds, fd)
		}
	}
	return fds
}

// Ops returns the Op names of all recorded calls.
func (f *Fake) Ops() []string {
	ops := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		ops[i] = c.Op
	}
	return ops
}

// Env returns a lookup function that reports the given names as set.
func Env(names ...string) func(string) (string, bool) {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) (string, bool) {
		if set[name] {
			return "1", true
		}
		return "", false
	}
}

// ErrInjected is a convenience error for Fail.
var ErrInjected = errors.New("injected failure")

func (f *Fake) members(leader int) []*counter {
	var members []*counter
	for _, fd := range f.order {
		c, ok := f.counters[fd]
		if ok && c.leader == leader {
			members = append(members, c)
		}
	}
	return members
}

func (f *Fake) step(name string) uint64 {
	if s, ok := f.Step[name]; ok {
		return s
	}
	return 1
}
