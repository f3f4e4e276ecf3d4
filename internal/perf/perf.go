// Package perf provides the native cpu cycle counters behind cyclesreader.
//
// A Backend opens one hardware cycle counter per requested cpu and returns a
// Handle that owns them. The Linux backend uses perf_event_open(2) with
// PERF_COUNT_HW_CPU_CYCLES; see
// https://www.man7.org/linux/man-pages/man2/perf_event_open.2.html.
//
// # Permissions
//
// System-wide counters need CAP_PERFMON (or root), or
// /proc/sys/kernel/perf_event_paranoid set to 0 or lower.
//
// Mock is a backend with no hardware dependency, for tests and demos.
package perf

import (
	"errors"
	"sync"
)

// Errors from the native layer
var (
	ErrUnsupported = errors.New("perf: cycle counters are not supported on this platform")
	ErrDestroyed   = errors.New("perf: handle already destroyed")
	ErrNoCounter   = errors.New("perf: no counter for cpu")
)

// Backend allocates cycle counters.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Open allocates one cycle counter per cpu. Counters start disabled
	// unless enabled is set. On error nothing stays allocated.
	Open(cpus []int, enabled bool) (Handle, error)
}

// Handle owns the counters returned by Backend.Open.
//
// Read and ReadAll may run concurrently with each other. Enable, Disable and
// Destroy must not run concurrently with any other call.
type Handle interface {
	// Enable resets the counters and starts counting.
	Enable() error

	// Disable stops counting without releasing the counters.
	Disable() error

	// Read returns the cycles counted on cpu since the last Enable.
	Read(cpu int) (int64, error)

	// ReadAll returns one count per cpu, in Open order. The caller must
	// Release the result.
	ReadAll() (*Counts, error)

	// Destroy disables and releases every counter. Calling it again
	// returns ErrDestroyed.
	Destroy() error
}

// Counts is a batch read result backed by a buffer owned by the backend.
type Counts struct {
	Values  []int64
	release func(*Counts)
	buf     *[]int64 // pooled backing slice, nil for unpooled counts
}

// NewCounts wraps values; release, if non-nil, runs once on Release.
func NewCounts(values []int64, release func(*Counts)) *Counts {
	return &Counts{Values: values, release: release}
}

// Release returns the buffer to its backend. Values must not be used after
// Release. Releasing twice is a no-op.
func (c *Counts) Release() {
	if c == nil || c.release == nil {
		return
	}
	release := c.release
	c.release = nil
	release(c)
}

// countsPool recycles batch buffers for the native backend.
type countsPool struct {
	pool sync.Pool
}

func (p *countsPool) get(n int) *Counts {
	buf, ok := p.pool.Get().(*[]int64)
	if !ok || cap(*buf) < n {
		values := make([]int64, n)
		buf = &values
	}
	counts := NewCounts((*buf)[:n], p.put)
	counts.buf = buf
	return counts
}

// put stores the slice pointer rather than the slice, so Put does not
// allocate.
func (p *countsPool) put(c *Counts) {
	buf := c.buf
	*buf = c.Values[:0]
	c.Values, c.buf = nil, nil
	p.pool.Put(buf)
}
