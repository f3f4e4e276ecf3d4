package perf

import (
	"fmt"
	"sync"
	"time"
)

// Mock is an in-memory Backend for tests and demos. Counters advance by
// explicit Advance calls and by a per-cpu synthetic rate measured against
// the mock's clock. It tracks allocations so tests can detect leaks and
// double destroys.
type Mock struct {
	mu    sync.Mutex
	now   func() time.Time
	rates map[int]int64
	live  map[*mockHandle]struct{}

	failOpenAt     int
	failOpenErr    error
	failEnableErr  error
	failReadErr    error
	truncateCounts bool

	opens          int
	enables        int
	disables       int
	destroys       int
	doubleDestroys int
	outstanding    int
}

// NewMock returns a Mock using the wall clock.
func NewMock() *Mock {
	return &Mock{
		now:        time.Now,
		rates:      make(map[int]int64),
		live:       make(map[*mockHandle]struct{}),
		failOpenAt: -1,
	}
}

// Name returns "mock".
func (m *Mock) Name() string {
	return "mock"
}

// SetClock replaces the clock used for synthetic rates.
func (m *Mock) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetRate makes cpu count hz cycles per second of mock clock time while enabled.
func (m *Mock) SetRate(cpu int, hz int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h := range m.live {
		if c, ok := h.counters[cpu]; ok {
			c.freeze(m.now(), m.rates[cpu], h.enabled)
		}
	}
	m.rates[cpu] = hz
}

// Advance adds n cycles to cpu on every open, enabled handle.
func (m *Mock) Advance(cpu int, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h := range m.live {
		if c, ok := h.counters[cpu]; ok && h.enabled {
			c.value += n
		}
	}
}

// FailOpenAt makes the next Open fail with err while allocating the counter
// at position index, after allocating the ones before it.
func (m *Mock) FailOpenAt(index int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOpenAt, m.failOpenErr = index, err
}

// FailEnable makes Enable fail with err until cleared with nil.
func (m *Mock) FailEnable(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failEnableErr = err
}

// FailRead makes Read and ReadAll fail with err until cleared with nil.
func (m *Mock) FailRead(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReadErr = err
}

// TruncateReadAll makes ReadAll return one value fewer than configured cpus.
func (m *Mock) TruncateReadAll(truncate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.truncateCounts = truncate
}

// Live returns the number of counters currently allocated.
func (m *Mock) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for h := range m.live {
		n += len(h.counters)
	}
	return n
}

// Outstanding returns the number of ReadAll results not yet released.
func (m *Mock) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outstanding
}

// Stats reports call counts.
type Stats struct {
	Opens          int
	Enables        int
	Disables       int
	Destroys       int
	DoubleDestroys int
}

// Stats returns the call counts so far.
func (m *Mock) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Opens:          m.opens,
		Enables:        m.enables,
		Disables:       m.disables,
		Destroys:       m.destroys,
		DoubleDestroys: m.doubleDestroys,
	}
}

// Open allocates one mock counter per cpu.
func (m *Mock) Open(cpus []int, enabled bool) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++

	h := &mockHandle{mock: m, cpus: append([]int(nil), cpus...), counters: make(map[int]*mockCounter, len(cpus))}
	m.live[h] = struct{}{}
	for i, cpu := range cpus {
		if i == m.failOpenAt {
			err := m.failOpenErr
			m.failOpenAt, m.failOpenErr = -1, nil
			delete(m.live, h)
			return nil, fmt.Errorf("mock open cpu%d: %w", cpu, err)
		}
		h.counters[cpu] = &mockCounter{}
	}

	if enabled {
		if err := h.enableLocked(); err != nil {
			delete(m.live, h)
			return nil, err
		}
	}
	return h, nil
}

type mockCounter struct {
	value int64
	since time.Time
}

// freeze folds the synthetic rate accumulated since c.since into c.value.
func (c *mockCounter) freeze(now time.Time, rate int64, enabled bool) {
	if enabled {
		c.value += int64(float64(rate) * now.Sub(c.since).Seconds())
	}
	c.since = now
}

type mockHandle struct {
	mock      *Mock
	cpus      []int
	counters  map[int]*mockCounter
	enabled   bool
	destroyed bool
}

func (h *mockHandle) Enable() error {
	h.mock.mu.Lock()
	defer h.mock.mu.Unlock()
	if h.destroyed {
		return ErrDestroyed
	}
	return h.enableLocked()
}

func (h *mockHandle) enableLocked() error {
	h.mock.enables++
	if h.mock.failEnableErr != nil {
		return fmt.Errorf("mock enable: %w", h.mock.failEnableErr)
	}
	now := h.mock.now()
	for _, c := range h.counters {
		c.value, c.since = 0, now
	}
	h.enabled = true
	return nil
}

func (h *mockHandle) Disable() error {
	h.mock.mu.Lock()
	defer h.mock.mu.Unlock()
	if h.destroyed {
		return ErrDestroyed
	}
	h.mock.disables++
	h.freezeLocked()
	h.enabled = false
	return nil
}

func (h *mockHandle) freezeLocked() {
	now := h.mock.now()
	for cpu, c := range h.counters {
		c.freeze(now, h.mock.rates[cpu], h.enabled)
	}
}

func (h *mockHandle) Read(cpu int) (int64, error) {
	h.mock.mu.Lock()
	defer h.mock.mu.Unlock()
	if h.destroyed {
		return 0, ErrDestroyed
	}
	if h.mock.failReadErr != nil {
		return 0, fmt.Errorf("mock read cpu%d: %w", cpu, h.mock.failReadErr)
	}
	c, ok := h.counters[cpu]
	if !ok {
		return 0, fmt.Errorf("%w %d", ErrNoCounter, cpu)
	}
	h.freezeLocked()
	return c.value, nil
}

func (h *mockHandle) ReadAll() (*Counts, error) {
	h.mock.mu.Lock()
	defer h.mock.mu.Unlock()
	if h.destroyed {
		return nil, ErrDestroyed
	}
	if h.mock.failReadErr != nil {
		return nil, fmt.Errorf("mock read: %w", h.mock.failReadErr)
	}
	h.freezeLocked()

	n := len(h.cpus)
	if h.mock.truncateCounts && n > 0 {
		n--
	}
	values := make([]int64, n)
	for i := range values {
		values[i] = h.counters[h.cpus[i]].value
	}
	h.mock.outstanding++
	return NewCounts(values, func(*Counts) {
		h.mock.mu.Lock()
		h.mock.outstanding--
		h.mock.mu.Unlock()
	}), nil
}

func (h *mockHandle) Destroy() error {
	h.mock.mu.Lock()
	defer h.mock.mu.Unlock()
	if h.destroyed {
		h.mock.doubleDestroys++
		return ErrDestroyed
	}
	h.mock.destroys++
	h.destroyed = true
	h.enabled = false
	delete(h.mock.live, h)
	return nil
}
