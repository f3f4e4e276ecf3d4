package cyclesreader

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

// Reader owns one hardware cycle counter per configured cpu.
//
// Reads on any cpus may run concurrently. Enable, Disable and Close are
// serialized against every other call. Close releases the counters exactly
// once; a Reader that becomes unreachable without Close is closed by a
// finalizer, but callers should defer Close.
type Reader struct {
	mu      sync.RWMutex
	handle  Handle
	cpus    []int
	known   map[int]struct{}
	enabled bool
	logger  *slog.Logger
	backend string
}

// New opens a cycle counter on each cpu in cpus. Counters start disabled
// unless WithEnabled(true) is given.
//
// Errors from the backend match ErrCreateFailed; nothing stays allocated.
func New(cpus []int, opts ...Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	known, err := validateCPUs(cpus)
	if err != nil {
		return nil, err
	}

	handle, err := cfg.backend.Open(cpus, cfg.enabled)
	if err != nil {
		cfg.logger.Warn("failed to open cycle counters",
			"backend", cfg.backend.Name(),
			"cpus", cpus,
			"error", err)
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	if handle == nil {
		return nil, fmt.Errorf("%w: backend %s returned no handle", ErrCreateFailed, cfg.backend.Name())
	}

	r := &Reader{
		handle:  handle,
		cpus:    append([]int(nil), cpus...),
		known:   known,
		enabled: cfg.enabled,
		logger:  cfg.logger,
		backend: cfg.backend.Name(),
	}
	runtime.SetFinalizer(r, func(r *Reader) {
		r.logger.Warn("cycles reader was not closed", "backend", r.backend, "cpus", r.cpus)
		r.Close()
	})

	r.logger.Debug("cycle counters opened",
		"backend", r.backend,
		"cpus", r.cpus,
		"enabled", r.enabled)
	return r, nil
}

func validateCPUs(cpus []int) (map[int]struct{}, error) {
	if len(cpus) == 0 {
		return nil, fmt.Errorf("%w: no cpus", ErrInvalidCPUList)
	}
	known := make(map[int]struct{}, len(cpus))
	for _, cpu := range cpus {
		if cpu < 0 {
			return nil, fmt.Errorf("%w: negative cpu %d", ErrInvalidCPUList, cpu)
		}
		if _, dup := known[cpu]; dup {
			return nil, fmt.Errorf("%w: cpu%d listed twice", ErrInvalidCPUList, cpu)
		}
		known[cpu] = struct{}{}
	}
	return known, nil
}

// CPUs returns the configured cpus in construction order.
func (r *Reader) CPUs() []int {
	return append([]int(nil), r.cpus...)
}

// Enabled reports whether the counters are counting.
func (r *Reader) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// Enable resets the counters and starts counting. It is a no-op if the
// counters are already enabled.
func (r *Reader) Enable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return ErrClosed
	}
	if r.enabled {
		return nil
	}
	if err := r.handle.Enable(); err != nil {
		return err
	}
	r.enabled = true
	return nil
}

// Disable stops counting. Counts read afterwards stay frozen until the next
// Enable resets them. It is a no-op if the counters are already disabled.
func (r *Reader) Disable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return ErrClosed
	}
	if !r.enabled {
		return nil
	}
	if err := r.handle.Disable(); err != nil {
		return err
	}
	r.enabled = false
	return nil
}

// Read returns the cycles counted on cpu since the counters were enabled.
// Errors match ErrReadFailed and may be retried.
func (r *Reader) Read(cpu int) (Instant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.handle == nil {
		return Instant{}, ErrClosed
	}
	if _, ok := r.known[cpu]; !ok {
		return Instant{}, fmt.Errorf("%w: %w: cpu%d", ErrReadFailed, ErrUnknownCPU, cpu)
	}
	value, err := r.handle.Read(cpu)
	if err != nil {
		return Instant{}, fmt.Errorf("%w: cpu%d: %w", ErrReadFailed, cpu, err)
	}
	return newInstant(cpu, Cycles(value)), nil
}

// ReadAll returns the cycles counted on every configured cpu.
// Errors match ErrReadFailed and may be retried.
func (r *Reader) ReadAll() (map[int]Cycles, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.handle == nil {
		return nil, ErrClosed
	}

	counts, err := r.handle.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	defer counts.Release()

	if len(counts.Values) != len(r.cpus) {
		return nil, fmt.Errorf("%w: backend returned %d counts for %d cpus",
			ErrReadFailed, len(counts.Values), len(r.cpus))
	}
	result := make(map[int]Cycles, len(r.cpus))
	for i, cpu := range r.cpus {
		result[cpu] = Cycles(counts.Values[i])
	}
	return result, nil
}

// Snapshot reads every configured cpu in one batch.
func (r *Reader) Snapshot() (Snapshot, error) {
	values, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	snapshot := make(Snapshot, len(values))
	for cpu, value := range values {
		snapshot[cpu] = newInstant(cpu, value)
	}
	return snapshot, nil
}

// Close disables the counters if needed and releases them. Calling Close
// again is a no-op.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle == nil {
		return nil
	}
	runtime.SetFinalizer(r, nil)

	var errs []error
	if r.enabled {
		if err := r.handle.Disable(); err != nil {
			errs = append(errs, err)
		}
		r.enabled = false
	}
	if err := r.handle.Destroy(); err != nil {
		errs = append(errs, err)
	}
	r.handle = nil

	err := errors.Join(errs...)
	if err != nil {
		r.logger.Warn("error releasing cycle counters", "backend", r.backend, "error", err)
	} else {
		r.logger.Debug("cycle counters released", "backend", r.backend)
	}
	return err
}
