// Package platform is the thin syscall port the loader core runs on: raw
// bpf(2) commands plus the handful of filesystem primitives (mkdir,
// renameat2, chmod, chown, access) pinning depends on. It owns no loader
// semantics of its own - every decision about what to create, reuse or
// gate lives above this package.
package platform

import (
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sys/unix"
)

// FD is an owned kernel file descriptor. The zero value is not valid; use
// Invalid() to represent "no descriptor" in a parallel-array slot.
type FD struct {
	raw int
}

// NewFD takes ownership of value. A finalizer is installed as a
// leak-detection backstop; callers must still Close deterministically.
func NewFD(value int) *FD {
	fd := &FD{value}
	runtime.SetFinalizer(fd, (*FD).Close)
	return fd
}

// Invalid returns a sentinel FD for a gated-out map or program slot.
func Invalid() *FD {
	return &FD{raw: -1}
}

func (fd *FD) Valid() bool {
	return fd != nil && fd.raw >= 0
}

func (fd *FD) String() string {
	if fd == nil {
		return "<nil>"
	}
	return strconv.Itoa(fd.raw)
}

func (fd *FD) Int() int {
	if fd == nil {
		return -1
	}
	return fd.raw
}

func (fd *FD) Uint() uint32 {
	return uint32(fd.raw)
}

// Close releases the descriptor; a kernel object that has been pinned
// stays alive through its pin. Safe to call multiple times.
func (fd *FD) Close() error {
	if fd == nil || fd.raw < 0 {
		return nil
	}
	value := fd.raw
	fd.raw = -1
	runtime.SetFinalizer(fd, nil)
	return unix.Close(value)
}

// Disown returns the raw descriptor and stops Close from releasing it.
// For handing ownership to a longer-lived container.
func (fd *FD) Disown() int {
	value := fd.raw
	fd.raw = -1
	runtime.SetFinalizer(fd, nil)
	return value
}

func wrapErrno(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
