package cyclesreader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/thediveo/cpus"
)

// FrequencySource provides the reference frequency of a cpu.
type FrequencySource interface {
	Frequency(cpu int) (Cycles, error)
}

// FrequencyFunc adapts a function to FrequencySource.
type FrequencyFunc func(cpu int) (Cycles, error)

// Frequency calls f(cpu).
func (f FrequencyFunc) Frequency(cpu int) (Cycles, error) {
	return f(cpu)
}

// StaticFrequency reports the same reference frequency for every cpu.
type StaticFrequency Cycles

// Frequency returns s.
func (s StaticFrequency) Frequency(int) (Cycles, error) {
	return Cycles(s), nil
}

const (
	defaultSysfsRoot     = "/sys"
	defaultFrequencyFile = "scaling_cur_freq"
)

// SysfsFrequency reads a cpufreq attribute, in kHz, from
// <Root>/devices/system/cpu/cpu<N>/cpufreq/<File>.
//
// The zero value reads scaling_cur_freq under /sys, which is the frequency the
// governor last requested rather than a measured one.
type SysfsFrequency struct {
	// Root is the sysfs mount point. Defaults to /sys.
	Root string
	// File is the cpufreq attribute to read. Defaults to scaling_cur_freq;
	// cpuinfo_max_freq and scaling_max_freq are common alternatives.
	File string
}

// Frequency reads the attribute for cpu. Failures wrap ErrFrequencyUnavailable.
func (s SysfsFrequency) Frequency(cpu int) (Cycles, error) {
	path := s.path(cpu)
	data, err := os.ReadFile(path)
	if err != nil {
		return Zero, fmt.Errorf("%w: %w", ErrFrequencyUnavailable, err)
	}
	khzValue, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("%w: parse %s: %w", ErrFrequencyUnavailable, path, err)
	}
	reference, err := FromKHz(khzValue)
	if err != nil {
		return Zero, fmt.Errorf("%w: %s: %w", ErrFrequencyUnavailable, path, err)
	}
	return reference, nil
}

func (s SysfsFrequency) path(cpu int) string {
	root, file := s.Root, s.File
	if root == "" {
		root = defaultSysfsRoot
	}
	if file == "" {
		file = defaultFrequencyFile
	}
	return filepath.Join(root, "devices/system/cpu", "cpu"+strconv.Itoa(cpu), "cpufreq", file)
}

// OnlineCPUs returns the cpus listed in /sys/devices/system/cpu/online.
func OnlineCPUs() ([]int, error) {
	return OnlineCPUsIn(defaultSysfsRoot)
}

// OnlineCPUsIn is OnlineCPUs for a sysfs tree mounted at sysRoot.
func OnlineCPUsIn(sysRoot string) ([]int, error) {
	data, err := os.ReadFile(filepath.Join(sysRoot, "devices/system/cpu/online"))
	if err != nil {
		return nil, err
	}
	return ParseCPUList(string(data))
}

// MaxCPU is the highest cpu id ParseCPUList accepts, well above the kernel's
// NR_CPUS limit.
const MaxCPU = 1 << 16

// ParseCPUList parses the kernel cpu list format, e.g. "0-3,8,10-11".
// The result is sorted and free of duplicates.
func ParseCPUList(list string) ([]int, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidCPUList)
	}
	ranges, err := cpus.NewList([]byte(list))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCPUList, err)
	}

	// Ranges are checked before any of them is expanded.
	for _, r := range ranges {
		if r[0] > r[1] || r[1] > MaxCPU {
			return nil, fmt.Errorf("%w: %d-%d", ErrInvalidCPUList, r[0], r[1])
		}
	}
	seen := make(map[int]struct{})
	for _, r := range ranges {
		for cpu := r[0]; cpu <= r[1]; cpu++ {
			seen[int(cpu)] = struct{}{}
		}
	}

	ids := make([]int, 0, len(seen))
	for cpu := range seen {
		ids = append(ids, cpu)
	}
	sort.Ints(ids)
	return ids, nil
}
