package cyclesreader

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

// TestUnitRoundTrip verifies that from/as conversions are inverse for values in range.
func TestUnitRoundTrip(t *testing.T) {
	for _, x := range []int64{0, 1, -1, 999, 1000, 123_456_789, math.MaxInt64, math.MinInt64} {
		if got := FromHz(x).Hz(); got != x {
			t.Errorf("FromHz(%d).Hz() = %d", x, got)
		}
	}

	for _, k := range []int64{0, 1, -7, 2_400_000, math.MaxInt64 / 1000, math.MinInt64 / 1000} {
		c, err := FromKHz(k)
		if err != nil {
			t.Fatalf("FromKHz(%d): %v", k, err)
		}
		if got := c.KHz(); got != k {
			t.Errorf("FromKHz(%d).KHz() = %d", k, got)
		}
	}

	m, err := FromMHz(2)
	if err != nil || m != 2_000_000 {
		t.Fatalf("FromMHz(2) = %d, %v", m, err)
	}
	g, err := FromGHz(3)
	if err != nil || g != 3_000_000_000 {
		t.Fatalf("FromGHz(3) = %d, %v", g, err)
	}
}

// TestConstructorOverflow verifies that scaled constructors refuse to wrap.
func TestConstructorOverflow(t *testing.T) {
	tests := []struct {
		name string
		fn   func(int64) (Cycles, error)
		in   int64
	}{
		{"khz", FromKHz, math.MaxInt64/1000 + 1},
		{"mhz", FromMHz, math.MaxInt64/1_000_000 + 1},
		{"ghz", FromGHz, math.MaxInt64/1_000_000_000 + 1},
		{"ghz negative", FromGHz, math.MinInt64/1_000_000_000 - 1},
	}
	for _, tc := range tests {
		if _, err := tc.fn(tc.in); !errors.Is(err, ErrOverflow) {
			t.Errorf("%s(%d): expected ErrOverflow, got %v", tc.name, tc.in, err)
		}
	}
}

// TestTruncatingAccessors verifies as_* conversions truncate rather than round.
func TestTruncatingAccessors(t *testing.T) {
	c := Cycles(1_999_999_999)
	if c.GHz() != 1 || c.MHz() != 1999 || c.KHz() != 1_999_999 {
		t.Fatalf("unexpected truncation: %d GHz, %d MHz, %d kHz", c.GHz(), c.MHz(), c.KHz())
	}
	if Cycles(1_000_000).KHz() != 1000 || Cycles(1_000_000_000_000).GHz() != 1000 {
		t.Fatal("exact conversions are wrong")
	}
}

// TestString verifies unit selection is inclusive toward the larger unit.
func TestString(t *testing.T) {
	tests := []struct {
		in   Cycles
		want string
	}{
		{0, "0Hz"},
		{999, "999Hz"},
		{1000, "1.00Khz"},
		{1500, "1.50Khz"},
		{1_000_000, "1.00Mhz"},
		{2_400_000_000, "2.40Ghz"},
		{1_000_000_000, "1.00Ghz"},
		{-2_000_000_000, "-2.00Ghz"},
		{-999, "-999Hz"},
	}
	for _, tc := range tests {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("Cycles(%d).String() = %q, want %q", int64(tc.in), got, tc.want)
		}
	}

	if got := Cycles(999_999_999).String(); !strings.HasSuffix(got, "Mhz") {
		t.Errorf("999_999_999 should render in Mhz, got %q", got)
	}
	if got := Max.String(); !strings.HasSuffix(got, "Ghz") {
		t.Errorf("Max should render in Ghz, got %q", got)
	}
	if got := Cycles(math.MinInt64).String(); !strings.HasSuffix(got, "Ghz") {
		t.Errorf("MinInt64 should render in Ghz, got %q", got)
	}
}

// TestCheckedArithmetic verifies overflow and division errors are surfaced.
func TestCheckedArithmetic(t *testing.T) {
	if v, err := Cycles(5).CheckedAdd(7); err != nil || v != 12 {
		t.Fatalf("5+7 = %d, %v", v, err)
	}
	if _, err := Max.CheckedAdd(1); !errors.Is(err, ErrOverflow) {
		t.Errorf("Max+1: expected ErrOverflow, got %v", err)
	}
	if _, err := Cycles(math.MinInt64).CheckedSub(1); !errors.Is(err, ErrOverflow) {
		t.Errorf("Min-1: expected ErrOverflow, got %v", err)
	}
	if v, err := Cycles(-1).CheckedSub(Max); err != nil || v != math.MinInt64 {
		t.Errorf("-1-Max = %d, %v", v, err)
	}
	if _, err := Cycles(math.MinInt64).CheckedNeg(); !errors.Is(err, ErrOverflow) {
		t.Errorf("-Min: expected ErrOverflow, got %v", err)
	}
	if _, err := Max.CheckedMul(2); !errors.Is(err, ErrOverflow) {
		t.Errorf("Max*2: expected ErrOverflow, got %v", err)
	}
	if _, err := Cycles(math.MinInt64).CheckedMul(-1); !errors.Is(err, ErrOverflow) {
		t.Errorf("Min*-1: expected ErrOverflow, got %v", err)
	}
	if v, err := Cycles(-4).CheckedMul(-5); err != nil || v != 20 {
		t.Errorf("-4*-5 = %d, %v", v, err)
	}
	if _, err := Cycles(10).CheckedDiv(0); !errors.Is(err, ErrDivideByZero) {
		t.Errorf("10/0: expected ErrDivideByZero, got %v", err)
	}
	if _, err := Cycles(math.MinInt64).CheckedDiv(-1); !errors.Is(err, ErrOverflow) {
		t.Errorf("Min/-1: expected ErrOverflow, got %v", err)
	}
	if v, err := Cycles(-7).CheckedDiv(2); err != nil || v != -3 {
		t.Errorf("-7/2 = %d, %v", v, err)
	}
	if v, err := Cycles(-7).CheckedRem(3); err != nil || v != -1 {
		t.Errorf("-7%%3 = %d, %v", v, err)
	}
	if _, err := Cycles(7).CheckedRem(0); !errors.Is(err, ErrDivideByZero) {
		t.Errorf("7%%0: expected ErrDivideByZero, got %v", err)
	}
}

// TestFloatArithmetic verifies float scaling truncates and rejects unrepresentable results.
func TestFloatArithmetic(t *testing.T) {
	if v, err := Cycles(1000).CheckedMulFloat(1.5); err != nil || v != 1500 {
		t.Errorf("1000*1.5 = %d, %v", v, err)
	}
	if v, err := Cycles(10).CheckedMulFloat(0.99); err != nil || v != 9 {
		t.Errorf("10*0.99 = %d, %v", v, err)
	}
	if v, err := Cycles(-10).CheckedDivFloat(4); err != nil || v != -2 {
		t.Errorf("-10/4.0 = %d, %v", v, err)
	}
	if _, err := Cycles(1).CheckedDivFloat(0); !errors.Is(err, ErrDivideByZero) {
		t.Errorf("1/0.0: expected ErrDivideByZero, got %v", err)
	}
	if _, err := Max.CheckedMulFloat(2); !errors.Is(err, ErrOverflow) {
		t.Errorf("Max*2.0: expected ErrOverflow, got %v", err)
	}
	if _, err := Cycles(1).CheckedMulFloat(math.NaN()); !errors.Is(err, ErrOverflow) {
		t.Errorf("1*NaN: expected ErrOverflow, got %v", err)
	}
}

// TestPanickingArithmetic verifies the short forms compute and panic with typed errors.
func TestPanickingArithmetic(t *testing.T) {
	if got := Cycles(3).Add(4).Sub(2).Mul(10).Div(5).Rem(7).Neg(); got != -3 {
		t.Fatalf("chain = %d, want -3", got)
	}
	if got := Cycles(100).MulFloat(0.25).DivFloat(0.5); got != 50 {
		t.Fatalf("float chain = %d, want 50", got)
	}

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrOverflow) {
			t.Fatalf("expected ErrOverflow panic, got %v", r)
		}
	}()
	_ = Max.Add(1)
}

// TestSum verifies Sum adds and reports overflow.
func TestSum(t *testing.T) {
	total, err := Sum(1, 2, 3)
	if err != nil || total != 6 {
		t.Fatalf("Sum(1,2,3) = %d, %v", total, err)
	}
	if total, err := Sum(); err != nil || total != Zero {
		t.Fatalf("Sum() = %d, %v", total, err)
	}
	if _, err := Sum(Max, 1, -5); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

// TestUsageAndDiff verifies the worked example: 2e9 cycles in 1s against a 1 GHz reference.
func TestUsageAndDiff(t *testing.T) {
	delta := Cycles(2_000_000_000)
	reference := Cycles(1_000_000_000)
	elapsed := 1_000_000 * time.Microsecond

	usage, err := delta.AsUsage(elapsed, reference)
	if err != nil {
		t.Fatalf("AsUsage: %v", err)
	}
	if usage != 2.0 {
		t.Errorf("AsUsage = %v, want 2.0", usage)
	}

	diff, err := delta.AsDiff(elapsed, reference)
	if err != nil {
		t.Fatalf("AsDiff: %v", err)
	}
	if diff != -1_000_000_000 {
		t.Errorf("AsDiff = %d, want -1000000000", diff)
	}

	rate, err := Cycles(1_500_000).Rate(500 * time.Microsecond)
	if err != nil || rate != 3_000_000_000 {
		t.Errorf("Rate = %d, %v", rate, err)
	}
}

// TestUsageErrors verifies zero durations and references fail instead of producing Inf or NaN.
func TestUsageErrors(t *testing.T) {
	delta := Cycles(1_000_000)
	ref := Cycles(1_000_000_000)

	for _, elapsed := range []time.Duration{0, 999 * time.Nanosecond} {
		if _, err := delta.AsUsage(elapsed, ref); !errors.Is(err, ErrDivideByZero) {
			t.Errorf("AsUsage(%v): expected ErrDivideByZero, got %v", elapsed, err)
		}
		if _, err := delta.AsDiff(elapsed, ref); !errors.Is(err, ErrDivideByZero) {
			t.Errorf("AsDiff(%v): expected ErrDivideByZero, got %v", elapsed, err)
		}
	}

	if _, err := delta.AsUsage(time.Second, Zero); !errors.Is(err, ErrDivideByZero) {
		t.Errorf("zero reference: expected ErrDivideByZero, got %v", err)
	}
	if _, err := delta.AsUsage(-time.Second, ref); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("negative elapsed: expected ErrInvalidDuration, got %v", err)
	}
	if _, err := Max.AsUsage(time.Second, ref); !errors.Is(err, ErrOverflow) {
		t.Errorf("huge delta: expected ErrOverflow, got %v", err)
	}
	if _, err := Cycles(-2).AsDiff(time.Microsecond, Max); !errors.Is(err, ErrOverflow) {
		t.Errorf("diff overflow: expected ErrOverflow, got %v", err)
	}
}

// TestUsageOn verifies references drawn from a FrequencySource.
func TestUsageOn(t *testing.T) {
	delta := Cycles(3_000_000_000)

	usage, err := delta.UsageOn(2, time.Second, StaticFrequency(1_500_000_000))
	if err != nil || usage != 2.0 {
		t.Fatalf("UsageOn = %v, %v", usage, err)
	}
	diff, err := delta.DiffOn(2, time.Second, StaticFrequency(4_000_000_000))
	if err != nil || diff != 1_000_000_000 {
		t.Fatalf("DiffOn = %d, %v", diff, err)
	}

	broken := FrequencyFunc(func(cpu int) (Cycles, error) {
		return Zero, errors.New("no cpufreq")
	})
	if _, err := delta.UsageOn(2, time.Second, broken); !errors.Is(err, ErrFrequencyUnavailable) {
		t.Errorf("expected ErrFrequencyUnavailable, got %v", err)
	}
	if _, err := delta.DiffOn(2, time.Second, nil); !errors.Is(err, ErrFrequencyUnavailable) {
		t.Errorf("nil source: expected ErrFrequencyUnavailable, got %v", err)
	}
}
