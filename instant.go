package cyclesreader

import "fmt"

// Instant is the cumulative cycle count of one cpu at the moment it was read.
// Only Instants of the same cpu can be compared.
type Instant struct {
	cpu   int
	value Cycles
}

func newInstant(cpu int, value Cycles) Instant {
	return Instant{cpu: cpu, value: value}
}

// CPU returns the cpu the Instant was read from.
func (i Instant) CPU() int {
	return i.cpu
}

// Cycles returns the cumulative count since the counter was enabled.
func (i Instant) Cycles() Cycles {
	return i.value
}

// CyclesSince returns the cycles elapsed between earlier and i.
//
// It panics if the two Instants come from different cpus. Use
// CyclesSinceChecked unless both Instants are known to share a cpu.
func (i Instant) CyclesSince(earlier Instant) Cycles {
	delta, err := i.CyclesSinceChecked(earlier)
	if err != nil {
		panic(err)
	}
	return delta
}

// CyclesSinceChecked returns the cycles elapsed between earlier and i, or a
// *CoreMismatchError if they were read from different cpus.
func (i Instant) CyclesSinceChecked(earlier Instant) (Cycles, error) {
	if i.cpu != earlier.cpu {
		return Zero, &CoreMismatchError{Left: i.cpu, Right: earlier.cpu}
	}
	return i.value.CheckedSub(earlier.value)
}

func (i Instant) String() string {
	return fmt.Sprintf("cpu%d@%d", i.cpu, int64(i.value))
}

// Snapshot holds one Instant per cpu, taken by a single batch read.
type Snapshot map[int]Instant

// Since returns the per-cpu cycle deltas between earlier and s. Every cpu in s
// must be present in earlier.
func (s Snapshot) Since(earlier Snapshot) (map[int]Cycles, error) {
	deltas := make(map[int]Cycles, len(s))
	for cpu, now := range s {
		then, ok := earlier[cpu]
		if !ok {
			return nil, fmt.Errorf("%w: cpu%d missing from earlier snapshot", ErrUnknownCPU, cpu)
		}
		delta, err := now.CyclesSinceChecked(then)
		if err != nil {
			return nil, err
		}
		deltas[cpu] = delta
	}
	return deltas, nil
}
