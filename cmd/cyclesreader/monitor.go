package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	cyclesreader "github.com/shadow3aaa/cpu-cycles-reader"
	"github.com/shadow3aaa/cpu-cycles-reader/internal/config"
)

// sample is one interval's worth of measurements.
type sample struct {
	Sample  int           `yaml:"sample"`
	Elapsed time.Duration `yaml:"elapsed"`
	CPUs    []cpuSample   `yaml:"cpus"`
}

// cpuSample holds the measurements of one cpu. Reference, Usage and Diff
// stay zero when Error is set.
type cpuSample struct {
	CPU       int                 `yaml:"cpu"`
	Cycles    cyclesreader.Cycles `yaml:"cycles"`
	Rate      cyclesreader.Cycles `yaml:"rate"`
	Reference cyclesreader.Cycles `yaml:"reference,omitempty"`
	Usage     float64             `yaml:"usage"`
	Diff      cyclesreader.Cycles `yaml:"diff"`
	Error     string              `yaml:"error,omitempty"`
}

type monitor struct {
	reader *cyclesreader.Reader
	source cyclesreader.FrequencySource
	now    func() time.Time
	logger *slog.Logger
	emit   func(sample) error
}

// run takes a baseline snapshot and then one sample per tick, until samples
// have been emitted (0 means no limit) or ctx is done. Failed reads are
// logged and skipped.
func (m *monitor) run(ctx context.Context, ticks <-chan time.Time, samples int) error {
	last, err := m.reader.Snapshot()
	if err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	lastAt := m.now()

	for emitted := 0; samples == 0 || emitted < samples; {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
		}

		current, err := m.reader.Snapshot()
		if err != nil {
			if errors.Is(err, cyclesreader.ErrReadFailed) {
				m.logger.Warn("skipping sample", "error", err)
				continue
			}
			return err
		}
		at := m.now()

		deltas, err := current.Since(last)
		if err != nil {
			return err
		}
		emitted++
		if err := m.emit(m.measure(emitted, deltas, at.Sub(lastAt))); err != nil {
			return fmt.Errorf("writing sample: %w", err)
		}
		last, lastAt = current, at
	}
	return nil
}

func (m *monitor) measure(n int, deltas map[int]cyclesreader.Cycles, elapsed time.Duration) sample {
	s := sample{Sample: n, Elapsed: elapsed}
	for _, cpu := range m.reader.CPUs() {
		entry := cpuSample{CPU: cpu, Cycles: deltas[cpu]}
		if err := m.fill(&entry, elapsed); err != nil {
			m.logger.Debug("incomplete sample", "cpu", cpu, "error", err)
			entry.Error = err.Error()
		}
		s.CPUs = append(s.CPUs, entry)
	}
	return s
}

func (m *monitor) fill(entry *cpuSample, elapsed time.Duration) error {
	rate, err := entry.Cycles.Rate(elapsed)
	if err != nil {
		return err
	}
	entry.Rate = rate

	reference, err := m.source.Frequency(entry.CPU)
	if err != nil {
		return err
	}
	entry.Reference = reference
	if entry.Usage, err = entry.Cycles.AsUsage(elapsed, reference); err != nil {
		return err
	}
	entry.Diff, err = entry.Cycles.AsDiff(elapsed, reference)
	return err
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

// newEmitter returns the sample writer for an output format.
func newEmitter(format string, w io.Writer) func(sample) error {
	if format == config.OutputYAML {
		return func(s sample) error { return writeYAML(w, s) }
	}
	return func(s sample) error { return writeText(w, s) }
}

// writeYAML writes s as one YAML document.
func writeYAML(w io.Writer, s sample) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "---\n"); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func writeText(w io.Writer, s sample) error {
	header := fmt.Sprintf("sample %d (%s)", s.Sample, s.Elapsed.Round(time.Microsecond))
	if _, err := fmt.Fprintln(w, headerStyle.Render(header)); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "  CPU\tCYCLES\tRATE\tREFERENCE\tUSAGE\tDIFF\n")
	for _, entry := range s.CPUs {
		if entry.Error != "" {
			fmt.Fprintf(tw, "  cpu%d\t%d\t%s\t-\t-\t%s\n", entry.CPU, int64(entry.Cycles), entry.Rate, entry.Error)
			continue
		}
		fmt.Fprintf(tw, "  cpu%d\t%d\t%s\t%s\t%.1f%%\t%s\n",
			entry.CPU,
			int64(entry.Cycles),
			entry.Rate,
			entry.Reference,
			entry.Usage*100,
			entry.Diff)
	}
	return tw.Flush()
}
