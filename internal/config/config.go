// Package config loads the cyclesreader command configuration.
//
// Configuration comes from an optional YAML file given with --config. Flags
// given on the command line override file values; the command applies them
// after Load and before Validate.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	cyclesreader "github.com/shadow3aaa/cpu-cycles-reader"
)

// Output formats.
const (
	OutputText = "text"
	OutputYAML = "yaml"
)

// Config is the cyclesreader command configuration.
type Config struct {
	// CPUs is a kernel cpu list such as "0-3,8". Empty means every online cpu.
	CPUs string `yaml:"cpus"`

	// Interval is the time between samples.
	Interval time.Duration `yaml:"interval"`

	// Samples is the number of samples to print. 0 runs until interrupted.
	Samples int `yaml:"samples"`

	// Reference is a fixed reference frequency, e.g. "2.4GHz". Zero reads the
	// reference of each cpu from sysfs.
	Reference cyclesreader.Cycles `yaml:"reference"`

	// SysfsRoot is where sysfs is mounted.
	SysfsRoot string `yaml:"sysfs_root"`

	// FrequencyFile is the cpufreq attribute used as the reference.
	FrequencyFile string `yaml:"frequency_file"`

	// Output is "text" or "yaml".
	Output string `yaml:"output"`

	// LogLevel is a slog level name: debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// MockRate is the synthetic cycle rate of every cpu when running
	// against the mock backend.
	MockRate cyclesreader.Cycles `yaml:"mock_rate"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		CPUs:          "",
		Interval:      time.Second,
		Samples:       0,
		Reference:     cyclesreader.Zero,
		SysfsRoot:     "/sys",
		FrequencyFile: "scaling_cur_freq",
		Output:        OutputText,
		LogLevel:      "info",
		MockRate:      cyclesreader.FromHz(2_000_000_000),
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for logical consistency.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.Samples < 0 {
		return fmt.Errorf("samples must not be negative, got %d", c.Samples)
	}
	if c.Reference < 0 {
		return fmt.Errorf("reference must not be negative, got %s", c.Reference)
	}
	if c.MockRate < 0 {
		return fmt.Errorf("mock_rate must not be negative, got %s", c.MockRate)
	}
	if c.Output != OutputText && c.Output != OutputYAML {
		return fmt.Errorf("output must be %q or %q, got %q", OutputText, OutputYAML, c.Output)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.CPUs != "" {
		if _, err := cyclesreader.ParseCPUList(c.CPUs); err != nil {
			return fmt.Errorf("cpus: %w", err)
		}
	}
	if c.SysfsRoot == "" {
		if c.Reference == 0 {
			return errors.New("sysfs_root is required when no reference is set")
		}
		if c.CPUs == "" {
			return errors.New("sysfs_root is required when no cpus are set")
		}
	}
	return nil
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// CPUList resolves CPUs, reading the online cpus under SysfsRoot when empty.
func (c *Config) CPUList() ([]int, error) {
	if c.CPUs != "" {
		return cyclesreader.ParseCPUList(c.CPUs)
	}
	cpus, err := cyclesreader.OnlineCPUsIn(c.SysfsRoot)
	if err != nil {
		return nil, fmt.Errorf("listing online cpus: %w", err)
	}
	return cpus, nil
}

// FrequencySource returns the reference frequency source: Reference when
// set, otherwise FrequencyFile under SysfsRoot.
func (c *Config) FrequencySource() cyclesreader.FrequencySource {
	if c.Reference > 0 {
		return cyclesreader.StaticFrequency(c.Reference)
	}
	return cyclesreader.SysfsFrequency{Root: c.SysfsRoot, File: c.FrequencyFile}
}
