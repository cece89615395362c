package profile

// Op is a grouped ioctl issued against the leader.
type Op int

const (
	OpReset Op = iota
	OpEnable
	OpDisable
)

func (o Op) String() string {
	switch o {
	case OpReset:
		return "reset"
	case OpEnable:
		return "enable"
	case OpDisable:
		return "disable"
	default:
		return "unknown"
	}
}

// OpenOptions are the per-counter perf_event_open arguments a group controls.
type OpenOptions struct {
	// PID to measure, 0 is the calling thread.
	PID int
	// GroupFD is the leader's fd, or -1 when opening the leader itself.
	GroupFD int
	// Inherit makes threads and processes created after the open count too.
	Inherit bool
}

// Sys is the kernel side of a counter group. Every counter is opened disabled,
// with a grouped read format and with kernel and hypervisor samples excluded.
// Ioctl always applies the operation to the whole group.
type Sys interface {
	Open(e Event, opts OpenOptions) (int, error)
	Ioctl(fd int, op Op) error
	Read(fd int, p []byte) (int, error)
	Close(fd int) error
}
