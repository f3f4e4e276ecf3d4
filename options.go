package cyclesreader

import (
	"io"
	"log/slog"

	"github.com/shadow3aaa/cpu-cycles-reader/internal/perf"
)

// Backend allocates the native cycle counters. NativeBackend returns the one
// for the running platform.
type Backend = perf.Backend

// Handle owns the counters allocated by a Backend.
type Handle = perf.Handle

// NativeBackend returns the perf_event_open backend on Linux and a backend
// that always fails with ErrUnsupported elsewhere.
func NativeBackend() Backend {
	return perf.Native()
}

// config holds the options for New.
type config struct {
	backend Backend
	logger  *slog.Logger
	enabled bool
}

// Option is a functional option for New.
type Option func(*config)

// defaultConfig returns the default configuration.
func defaultConfig() *config {
	return &config{
		backend: perf.Native(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithBackend sets the counter backend. Default is NativeBackend().
func WithBackend(b Backend) Option {
	return func(c *config) {
		if b != nil {
			c.backend = b
		}
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEnabled starts counting as part of New instead of waiting for Enable.
func WithEnabled(enabled bool) Option {
	return func(c *config) {
		c.enabled = enabled
	}
}
