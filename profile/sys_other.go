//go:build !linux

package profile

import "syscall"

type otherSys struct{}

// System returns a Sys that fails every operation with ErrUnsupported.
func System() Sys {
	return otherSys{}
}

func (otherSys) Open(Event, OpenOptions) (int, error) { return -1, ErrUnsupported }
func (otherSys) Ioctl(int, Op) error                  { return ErrUnsupported }
func (otherSys) Read(int, []byte) (int, error)        { return 0, ErrUnsupported }
func (otherSys) Close(int) error                      { return ErrUnsupported }

var openErrorHints = map[syscall.Errno]string{}
