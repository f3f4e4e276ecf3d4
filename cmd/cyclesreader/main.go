// cyclesreader samples the hardware cycle counters of a set of cpus and
// prints, per sample interval, the cycles counted on each cpu, the resulting
// frequency, and how it compares with a reference frequency.
//
// The reference is either fixed (--reference) or read per cpu from cpufreq
// in sysfs. With --mock the counters are synthetic, which needs no
// privileges and is useful to try the output formats.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	cyclesreader "github.com/shadow3aaa/cpu-cycles-reader"
	"github.com/shadow3aaa/cpu-cycles-reader/internal/config"
	"github.com/shadow3aaa/cpu-cycles-reader/internal/perf"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flags holds the command line. Only flags that were set override the
// config file.
type flags struct {
	configPath    string
	cpus          string
	interval      time.Duration
	samples       int
	reference     cyclesreader.Cycles
	sysfsRoot     string
	frequencyFile string
	output        string
	mock          bool
	mockRate      cyclesreader.Cycles
	logLevel      string
	version       bool
}

func newFlagSet(f *flags, stderr io.Writer) *pflag.FlagSet {
	defaults := config.Default()
	f.reference = defaults.Reference
	f.mockRate = defaults.MockRate

	flagSet := pflag.NewFlagSet("cyclesreader", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	flagSet.StringVar(&f.cpus, "cpus", defaults.CPUs, `cpus to sample, e.g. "0-3,8" (default: all online cpus)`)
	flagSet.DurationVarP(&f.interval, "interval", "i", defaults.Interval, "time between samples")
	flagSet.IntVarP(&f.samples, "samples", "n", defaults.Samples, "number of samples to print, 0 runs until interrupted")
	flagSet.Var(cyclesFlag{&f.reference}, "reference", `fixed reference frequency, e.g. "2.4GHz" (default: read from sysfs)`)
	flagSet.StringVar(&f.sysfsRoot, "sysfs-root", defaults.SysfsRoot, "sysfs mount point")
	flagSet.StringVar(&f.frequencyFile, "frequency-file", defaults.FrequencyFile, "cpufreq attribute used as the reference")
	flagSet.StringVarP(&f.output, "output", "o", defaults.Output, "output format: text or yaml")
	flagSet.BoolVar(&f.mock, "mock", false, "use synthetic counters instead of perf events")
	flagSet.Var(cyclesFlag{&f.mockRate}, "mock-rate", "cycle rate of every cpu with --mock")
	flagSet.StringVar(&f.logLevel, "log-level", defaults.LogLevel, "log level: debug, info, warn or error")
	flagSet.BoolVar(&f.version, "version", false, "print the version and exit")
	flagSet.BoolP("help", "h", false, "show help")
	return flagSet
}

// apply copies the flags that were given on the command line into cfg.
func (f *flags) apply(flagSet *pflag.FlagSet, cfg *config.Config) {
	if flagSet.Changed("cpus") {
		cfg.CPUs = f.cpus
	}
	if flagSet.Changed("interval") {
		cfg.Interval = f.interval
	}
	if flagSet.Changed("samples") {
		cfg.Samples = f.samples
	}
	if flagSet.Changed("reference") {
		cfg.Reference = f.reference
	}
	if flagSet.Changed("sysfs-root") {
		cfg.SysfsRoot = f.sysfsRoot
	}
	if flagSet.Changed("frequency-file") {
		cfg.FrequencyFile = f.frequencyFile
	}
	if flagSet.Changed("output") {
		cfg.Output = f.output
	}
	if flagSet.Changed("mock-rate") {
		cfg.MockRate = f.mockRate
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
}

// cyclesFlag adapts cyclesreader.Cycles to pflag.Value.
type cyclesFlag struct {
	target *cyclesreader.Cycles
}

func (f cyclesFlag) String() string {
	if f.target == nil {
		return ""
	}
	return f.target.String()
}

func (f cyclesFlag) Set(value string) error {
	return f.target.UnmarshalText([]byte(value))
}

func (f cyclesFlag) Type() string {
	return "frequency"
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var f flags
	flagSet := newFlagSet(&f, stderr)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet, stderr)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet, stderr)
		return nil
	}
	if f.version {
		fmt.Fprintf(stdout, "cyclesreader %s\n", version)
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	f.apply(flagSet, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cpus, err := cfg.CPUList()
	if err != nil {
		return err
	}

	backend := cyclesreader.NativeBackend()
	if f.mock {
		mock := perf.NewMock()
		for _, cpu := range cpus {
			mock.SetRate(cpu, cfg.MockRate.Hz())
		}
		backend = mock
	}

	reader, err := cyclesreader.New(cpus,
		cyclesreader.WithBackend(backend),
		cyclesreader.WithLogger(logger),
		cyclesreader.WithEnabled(true))
	if err != nil {
		if errors.Is(err, cyclesreader.ErrCreateFailed) && !f.mock {
			logger.Info("perf events need CAP_PERFMON or a permissive /proc/sys/kernel/perf_event_paranoid; try --mock")
		}
		return err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("closing cycles reader", "error", err)
		}
	}()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	m := &monitor{
		reader: reader,
		source: cfg.FrequencySource(),
		now:    time.Now,
		logger: logger,
		emit:   newEmitter(cfg.Output, stdout),
	}
	logger.Debug("sampling",
		"cpus", cpus,
		"interval", cfg.Interval,
		"samples", cfg.Samples,
		"output", cfg.Output)
	return m.run(ctx, ticker.C, cfg.Samples)
}

func printHelp(flagSet *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `cyclesreader: sample per-cpu hardware cycle counters.

Every interval, prints for each cpu the cycles counted, the resulting
frequency, and its usage and difference against a reference frequency.

Usage:
  cyclesreader [flags]

Examples:
  # All online cpus, once a second, until interrupted
  cyclesreader

  # Five samples of cpus 0-3 against a fixed 2.4GHz reference
  cyclesreader --cpus 0-3 --samples 5 --reference 2.4GHz

  # Synthetic counters as YAML
  cyclesreader --mock --cpus 0-1 --samples 3 --output yaml

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
