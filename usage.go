package cyclesreader

import (
	"errors"
	"fmt"
	"time"
)

// Rate treats c as a cycle delta accumulated over elapsed and returns the
// estimated frequency: c * 1_000_000 / elapsed in microseconds.
//
// Elapsed times below one microsecond have no usable resolution and fail
// with ErrDivideByZero.
func (c Cycles) Rate(elapsed time.Duration) (Cycles, error) {
	micros := elapsed.Microseconds()
	if micros < 0 {
		return Zero, fmt.Errorf("%w: %v", ErrInvalidDuration, elapsed)
	}
	if micros == 0 {
		return Zero, fmt.Errorf("%w: elapsed %v is below 1µs", ErrDivideByZero, elapsed)
	}
	scaled, ok := mulInt64(int64(c), 1_000_000)
	if !ok {
		return Zero, fmt.Errorf("%w: %d cycles * 1000000", ErrOverflow, c)
	}
	return Cycles(scaled / micros), nil
}

// AsUsage returns the ratio of the estimated frequency over elapsed to the
// reference frequency. The reference is a nominal or requested frequency, so
// the ratio can exceed 1.0 while the cycle count itself is exact.
func (c Cycles) AsUsage(elapsed time.Duration, reference Cycles) (float64, error) {
	rate, err := c.Rate(elapsed)
	if err != nil {
		return 0, err
	}
	if reference == 0 {
		return 0, fmt.Errorf("%w: reference frequency is zero", ErrDivideByZero)
	}
	return float64(rate) / float64(reference), nil
}

// AsDiff returns reference minus the estimated frequency over elapsed.
// A negative result means the core ran faster than the reference.
func (c Cycles) AsDiff(elapsed time.Duration, reference Cycles) (Cycles, error) {
	rate, err := c.Rate(elapsed)
	if err != nil {
		return Zero, err
	}
	return reference.CheckedSub(rate)
}

// UsageOn is AsUsage with the reference frequency of cpu taken from source.
func (c Cycles) UsageOn(cpu int, elapsed time.Duration, source FrequencySource) (float64, error) {
	reference, err := referenceOf(cpu, source)
	if err != nil {
		return 0, err
	}
	return c.AsUsage(elapsed, reference)
}

// DiffOn is AsDiff with the reference frequency of cpu taken from source.
func (c Cycles) DiffOn(cpu int, elapsed time.Duration, source FrequencySource) (Cycles, error) {
	reference, err := referenceOf(cpu, source)
	if err != nil {
		return Zero, err
	}
	return c.AsDiff(elapsed, reference)
}

func referenceOf(cpu int, source FrequencySource) (Cycles, error) {
	if source == nil {
		return Zero, fmt.Errorf("%w: no frequency source", ErrFrequencyUnavailable)
	}
	reference, err := source.Frequency(cpu)
	if err != nil && !errors.Is(err, ErrFrequencyUnavailable) {
		err = fmt.Errorf("%w: cpu%d: %w", ErrFrequencyUnavailable, cpu, err)
	}
	return reference, err
}
