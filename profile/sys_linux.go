//go:build linux

package profile

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

type linuxSys struct{}

// System returns the perf_event_open(2) backed Sys.
func System() Sys {
	return linuxSys{}
}

var attrSize = uint32(unsafe.Sizeof(unix.PerfEventAttr{}))

func (linuxSys) Open(e Event, opts OpenOptions) (int, error) {
	attr := unix.PerfEventAttr{
		Type:        uint32(e.Type),
		Size:        attrSize,
		Config:      e.Config,
		Read_format: unix.PERF_FORMAT_GROUP,
		Bits:        unix.PerfBitDisabled | unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv,
	}
	if opts.Inherit {
		attr.Bits |= unix.PerfBitInherit
	}

	fd, err := unix.PerfEventOpen(&attr, opts.PID, -1, opts.GroupFD, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

// perfIOCFlagGroup is PERF_IOC_FLAG_GROUP: apply the ioctl to the leader and
// all of its siblings.
const perfIOCFlagGroup = 1

var ioctlRequests = map[Op]uint{
	OpReset:   unix.PERF_EVENT_IOC_RESET,
	OpEnable:  unix.PERF_EVENT_IOC_ENABLE,
	OpDisable: unix.PERF_EVENT_IOC_DISABLE,
}

func (linuxSys) Ioctl(fd int, op Op) error {
	return unix.IoctlSetInt(fd, ioctlRequests[op], perfIOCFlagGroup)
}

func (linuxSys) Read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func (linuxSys) Close(fd int) error {
	return unix.Close(fd)
}

var openErrorHints = map[syscall.Errno]string{
	unix.EACCES: "The requested event requires CAP_PERFMON (since Linux 5.8) or CAP_SYS_ADMIN " +
		"permissions, or a more permissive perf_event_paranoid setting " +
		"(try: sudo sysctl kernel.perf_event_paranoid=1).",

	unix.EPERM: "Unsupported exclude_hv or exclude_kernel setting, or the event requires " +
		"CAP_PERFMON/CAP_SYS_ADMIN (see kernel.perf_event_paranoid).",

	unix.EBADF: "The group_fd file descriptor is not valid.",

	unix.EBUSY: "Another event already has exclusive access to the PMU.",

	unix.EINVAL: "The specified event is invalid: the generic event is not supported, the " +
		"config is out of range, or there is not enough room on the PMU for the group.",

	unix.EMFILE: "The per-process limit on open file descriptors was reached.",

	unix.ENODEV: "The event involves a feature not supported by the current CPU.",

	unix.ENOENT: "The type setting is not valid, or the generic event is not supported.",

	unix.ENOSPC: "Not enough room for the event on the PMU.",

	unix.EOPNOTSUPP: "The event requires hardware support that is not available " +
		"(common inside virtual machines without a virtual PMU).",

	unix.ESRCH: "The process to measure does not exist.",
}
