//go:build !linux

package perf

// Unsupported is the backend for platforms without perf events.
type Unsupported struct{}

// Native returns the backend for the running platform.
func Native() Backend {
	return Unsupported{}
}

// Name returns "unsupported".
func (Unsupported) Name() string {
	return "unsupported"
}

// Open always fails with ErrUnsupported.
func (Unsupported) Open([]int, bool) (Handle, error) {
	return nil, ErrUnsupported
}
