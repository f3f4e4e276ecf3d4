package cyclesreader

import (
	"fmt"
	"math"
)

// Cycles is a count of cpu cycles. Used as a rate it is read as Hz
// (cycles per second); both share the same unit.
type Cycles int64

const (
	// Zero is the empty cycle count.
	Zero Cycles = 0
	// Max is the largest representable cycle count.
	Max Cycles = math.MaxInt64
)

const (
	hz  = 1
	khz = 1000 * hz
	mhz = 1000 * khz
	ghz = 1000 * mhz
)

// FromHz returns h cycles.
func FromHz(h int64) Cycles {
	return Cycles(h)
}

// FromKHz returns k*1000 cycles, or ErrOverflow if that leaves the int64 range.
func FromKHz(k int64) (Cycles, error) {
	return fromUnit(k, khz)
}

// FromMHz returns m*1_000_000 cycles, or ErrOverflow if that leaves the int64 range.
func FromMHz(m int64) (Cycles, error) {
	return fromUnit(m, mhz)
}

// FromGHz returns g*1_000_000_000 cycles, or ErrOverflow if that leaves the int64 range.
func FromGHz(g int64) (Cycles, error) {
	return fromUnit(g, ghz)
}

func fromUnit(n, unit int64) (Cycles, error) {
	v, ok := mulInt64(n, unit)
	if !ok {
		return Zero, fmt.Errorf("%w: %d * %d", ErrOverflow, n, unit)
	}
	return Cycles(v), nil
}

// Hz returns the raw count.
func (c Cycles) Hz() int64 {
	return int64(c)
}

// KHz returns the count in kHz, truncated toward zero.
func (c Cycles) KHz() int64 {
	return int64(c) / khz
}

// MHz returns the count in MHz, truncated toward zero.
func (c Cycles) MHz() int64 {
	return int64(c) / mhz
}

// GHz returns the count in GHz, truncated toward zero.
func (c Cycles) GHz() int64 {
	return int64(c) / ghz
}

// String formats c with the largest unit its magnitude reaches:
// 1_000_000_000 is "1.00Ghz", 999_999 is "1000.00Khz", 999 is "999Hz".
func (c Cycles) String() string {
	switch magnitude := c.magnitude(); {
	case magnitude >= ghz:
		return fmt.Sprintf("%.2fGhz", float64(c)/ghz)
	case magnitude >= mhz:
		return fmt.Sprintf("%.2fMhz", float64(c)/mhz)
	case magnitude >= khz:
		return fmt.Sprintf("%.2fKhz", float64(c)/khz)
	default:
		return fmt.Sprintf("%dHz", int64(c))
	}
}

// magnitude is |c| as uint64, which also holds |math.MinInt64|.
func (c Cycles) magnitude() uint64 {
	if c < 0 {
		return uint64(-(c + 1)) + 1
	}
	return uint64(c)
}
