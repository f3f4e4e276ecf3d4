package cyclesreader

import (
	"errors"
	"fmt"

	"github.com/shadow3aaa/cpu-cycles-reader/internal/perf"
)

// Errors that can be returned by the cycles reader.
var (
	// ErrCreateFailed is returned when the native counters could not be allocated
	// (missing privileges, perf_event_paranoid, resource exhaustion). The Reader
	// is unusable; construct a new one.
	ErrCreateFailed = errors.New("cyclesreader: failed to create cycles reader")

	// ErrReadFailed is returned when a counter read fails. Reads may be retried.
	ErrReadFailed = errors.New("cyclesreader: failed to read cpu cycles")

	// ErrInconsistentCore is returned when two Instants from different cpus are subtracted.
	ErrInconsistentCore = errors.New("cyclesreader: cpu cores of instants are inconsistent and cannot be subtracted")

	// ErrOverflow is returned when a result leaves the int64 range.
	ErrOverflow = errors.New("cyclesreader: arithmetic overflow")

	// ErrDivideByZero is returned for a zero divisor, zero elapsed time or zero reference frequency.
	ErrDivideByZero = errors.New("cyclesreader: division by zero")

	// ErrInvalidDuration is returned when a negative elapsed duration is supplied.
	ErrInvalidDuration = errors.New("cyclesreader: invalid elapsed duration")

	// ErrFrequencyUnavailable is returned when a reference frequency lookup fails.
	ErrFrequencyUnavailable = errors.New("cyclesreader: reference frequency unavailable")

	// ErrClosed is returned by operations on a closed Reader.
	ErrClosed = errors.New("cyclesreader: reader is closed")

	// ErrUnknownCPU is returned when reading a cpu the Reader was not created for.
	ErrUnknownCPU = errors.New("cyclesreader: cpu not configured")

	// ErrInvalidCPUList is returned for empty, malformed, out of range or
	// duplicated cpu lists.
	ErrInvalidCPUList = errors.New("cyclesreader: invalid cpu list")

	// ErrSyntax is returned when a frequency string cannot be parsed.
	ErrSyntax = errors.New("cyclesreader: invalid frequency syntax")

	// ErrUnsupported is returned by the native backend on platforms without perf events.
	ErrUnsupported = perf.ErrUnsupported
)

// CoreMismatchError reports an attempt to compare Instants taken on different cpus.
// It matches ErrInconsistentCore under errors.Is.
type CoreMismatchError struct {
	Left  int
	Right int
}

func (e *CoreMismatchError) Error() string {
	return fmt.Sprintf("%s (cpu%d vs cpu%d)", ErrInconsistentCore.Error(), e.Left, e.Right)
}

// Is reports whether target is ErrInconsistentCore.
func (e *CoreMismatchError) Is(target error) bool {
	return target == ErrInconsistentCore
}
