package cyclesreader

import (
	"errors"
	"math"
	"testing"
)

func TestCyclesSince(t *testing.T) {
	former := newInstant(3, 1_000)
	later := newInstant(3, 4_500)

	if got := later.CyclesSince(former); got != 3_500 {
		t.Errorf("CyclesSince = %d, want 3500", got)
	}
	got, err := former.CyclesSinceChecked(later)
	if err != nil || got != -3_500 {
		t.Errorf("reversed CyclesSinceChecked = %d, %v", got, err)
	}
	if later.CPU() != 3 || later.Cycles() != 4_500 {
		t.Errorf("accessors = %d, %d", later.CPU(), later.Cycles())
	}
	if s := later.String(); s != "cpu3@4500" {
		t.Errorf("String = %q", s)
	}
}

func TestCyclesSinceMismatch(t *testing.T) {
	a := newInstant(0, 10)
	b := newInstant(1, 5)

	_, err := a.CyclesSinceChecked(b)
	if !errors.Is(err, ErrInconsistentCore) {
		t.Fatalf("expected ErrInconsistentCore, got %v", err)
	}
	var mismatch *CoreMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *CoreMismatchError, got %T", err)
	}
	if mismatch.Left != 0 || mismatch.Right != 1 {
		t.Errorf("mismatch = %+v", mismatch)
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("CyclesSince across cpus did not panic")
		}
		if e, ok := r.(error); !ok || !errors.Is(e, ErrInconsistentCore) {
			t.Errorf("panic value = %v", r)
		}
	}()
	a.CyclesSince(b)
}

func TestCyclesSinceOverflow(t *testing.T) {
	low := newInstant(2, math.MinInt64)
	high := newInstant(2, Max)
	if _, err := high.CyclesSinceChecked(low); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestSnapshotSince(t *testing.T) {
	earlier := Snapshot{
		0: newInstant(0, 100),
		1: newInstant(1, 200),
		2: newInstant(2, 300),
	}
	later := Snapshot{
		0: newInstant(0, 1_100),
		1: newInstant(1, 200),
	}

	deltas, err := later.Since(earlier)
	if err != nil {
		t.Fatal(err)
	}
	if len(deltas) != 2 || deltas[0] != 1_000 || deltas[1] != 0 {
		t.Errorf("deltas = %v", deltas)
	}

	if _, err := earlier.Since(later); !errors.Is(err, ErrUnknownCPU) {
		t.Errorf("expected ErrUnknownCPU, got %v", err)
	}

	// A key pointing at another cpu's Instant is a mismatch, not a delta.
	bogus := Snapshot{0: newInstant(1, 500)}
	if _, err := bogus.Since(earlier); !errors.Is(err, ErrInconsistentCore) {
		t.Errorf("expected ErrInconsistentCore, got %v", err)
	}
}
