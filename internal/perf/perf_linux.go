//go:build linux

package perf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Syscalls used by the Linux backend. Tests replace them.
var (
	perfEventOpen = unix.PerfEventOpen
	ioctlSetInt   = unix.IoctlSetInt
	closeFD       = unix.Close
)

// Linux is the perf_event_open backend.
type Linux struct{}

// Native returns the backend for the running platform.
func Native() Backend {
	return Linux{}
}

// Name returns "perf_event".
func (Linux) Name() string {
	return "perf_event"
}

// cyclesAttr describes a cpu-wide hardware cycle counter, created disabled.
func cyclesAttr() *unix.PerfEventAttr {
	attr := &unix.PerfEventAttr{
		Type:   unix.PERF_TYPE_HARDWARE,
		Config: unix.PERF_COUNT_HW_CPU_CYCLES,
		Bits:   unix.PerfBitDisabled,
	}
	attr.Size = uint32(unsafe.Sizeof(*attr))
	return attr
}

// Open opens one counter per cpu. If any open fails, the counters opened so
// far are closed before returning.
func (Linux) Open(cpus []int, enabled bool) (Handle, error) {
	attr := cyclesAttr()
	handle := &linuxHandle{
		fds:   make([]int, 0, len(cpus)),
		index: make(map[int]int, len(cpus)),
	}

	for _, cpu := range cpus {
		// pid -1 with a cpu counts every task on that cpu.
		fd, err := perfEventOpen(attr, -1, cpu, -1, unix.PERF_FLAG_FD_CLOEXEC)
		if err != nil {
			handle.closeAll()
			return nil, fmt.Errorf("perf_event_open cpu%d: %w", cpu, err)
		}
		handle.index[cpu] = len(handle.fds)
		handle.fds = append(handle.fds, fd)
	}

	if enabled {
		if err := handle.Enable(); err != nil {
			handle.closeAll()
			return nil, err
		}
	}
	return handle, nil
}

type linuxHandle struct {
	fds       []int
	index     map[int]int
	buffers   countsPool
	destroyed bool
}

func (h *linuxHandle) Enable() error {
	if h.destroyed {
		return ErrDestroyed
	}
	for _, fd := range h.fds {
		if err := ioctlSetInt(fd, unix.PERF_EVENT_IOC_RESET, 0); err != nil {
			return fmt.Errorf("perf reset fd %d: %w", fd, err)
		}
		if err := ioctlSetInt(fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
			return fmt.Errorf("perf enable fd %d: %w", fd, err)
		}
	}
	return nil
}

func (h *linuxHandle) Disable() error {
	if h.destroyed {
		return ErrDestroyed
	}
	var errs []error
	for _, fd := range h.fds {
		if err := ioctlSetInt(fd, unix.PERF_EVENT_IOC_DISABLE, 0); err != nil {
			errs = append(errs, fmt.Errorf("perf disable fd %d: %w", fd, err))
		}
	}
	return errors.Join(errs...)
}

func (h *linuxHandle) Read(cpu int) (int64, error) {
	if h.destroyed {
		return 0, ErrDestroyed
	}
	i, ok := h.index[cpu]
	if !ok {
		return 0, fmt.Errorf("%w %d", ErrNoCounter, cpu)
	}
	return readCounter(h.fds[i])
}

func (h *linuxHandle) ReadAll() (*Counts, error) {
	if h.destroyed {
		return nil, ErrDestroyed
	}
	counts := h.buffers.get(len(h.fds))
	for i, fd := range h.fds {
		value, err := readCounter(fd)
		if err != nil {
			counts.Release()
			return nil, err
		}
		counts.Values[i] = value
	}
	return counts, nil
}

func (h *linuxHandle) Destroy() error {
	if h.destroyed {
		return ErrDestroyed
	}
	err := h.Disable()
	if closeErr := h.closeAll(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	return err
}

// closeAll closes every fd and marks the handle destroyed.
func (h *linuxHandle) closeAll() error {
	var errs []error
	for _, fd := range h.fds {
		if err := closeFD(fd); err != nil {
			errs = append(errs, fmt.Errorf("close fd %d: %w", fd, err))
		}
	}
	h.fds = nil
	h.index = nil
	h.destroyed = true
	return errors.Join(errs...)
}

// readCounter reads the 8-byte counter value of a perf fd.
func readCounter(fd int) (int64, error) {
	var buf [8]byte
	n, err := unix.Read(fd, buf[:])
	if err != nil {
		return 0, fmt.Errorf("read perf fd %d: %w", fd, err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("read perf fd %d: short read of %d bytes", fd, n)
	}
	return int64(binary.NativeEndian.Uint64(buf[:])), nil
}
