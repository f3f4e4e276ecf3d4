// Package cyclesreader reads per-cpu hardware cycle counters and turns cycle
// deltas into frequency and utilization figures.
//
// It only counts cpu cycles; it is not a general wrapper of
// perf_event_open(2). System-wide counters need CAP_PERFMON, root, or a
// permissive /proc/sys/kernel/perf_event_paranoid.
//
// # Usage
//
//	reader, err := cyclesreader.New([]int{7}, cyclesreader.WithEnabled(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//
//	start := time.Now()
//	former, _ := reader.Read(7)
//
//	// cpu7 does some work
//
//	later, _ := reader.Read(7)
//	cycles, err := later.CyclesSinceChecked(former)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	usage, err := cycles.UsageOn(7, time.Since(start), cyclesreader.SysfsFrequency{})
//	fmt.Printf("%s %.2f\n", cycles, usage)
//
// # Reference frequency
//
// Usage and diff compare the measured rate with a reference frequency the
// caller supplies, directly or through a FrequencySource. SysfsFrequency reads
// cpufreq's scaling_cur_freq, which is the requested frequency rather than
// the real one, so usage can exceed 1.0 while the cycle count is exact.
//
// # Instants
//
// An Instant is tagged with its cpu. Subtracting Instants of different cpus
// fails with ErrInconsistentCore instead of producing a meaningless delta.
package cyclesreader
