package cyclesreader

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

var units = map[string]int64{
	"":    hz,
	"hz":  hz,
	"khz": khz,
	"mhz": mhz,
	"ghz": ghz,
}

// ParseCycles parses a frequency such as "2400MHz", "2.4GHz", "800kHz" or a
// bare count of Hz. Units are case-insensitive. The value must resolve to a
// whole number of Hz.
func ParseCycles(s string) (Cycles, error) {
	text := strings.TrimSpace(s)
	split := strings.IndexFunc(text, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != '-' && r != '+'
	})
	number, unitName := text, ""
	if split >= 0 {
		number, unitName = text[:split], strings.ToLower(strings.TrimSpace(text[split:]))
	}
	unit, ok := units[unitName]
	if !ok {
		return Zero, fmt.Errorf("%w: unknown unit in %q", ErrSyntax, s)
	}

	negative := false
	switch {
	case strings.HasPrefix(number, "-"):
		negative, number = true, number[1:]
	case strings.HasPrefix(number, "+"):
		number = number[1:]
	}
	whole, fraction, _ := strings.Cut(number, ".")
	if whole == "" && fraction == "" || strings.ContainsAny(whole+fraction, "+-.") {
		return Zero, fmt.Errorf("%w: %q", ErrSyntax, s)
	}

	// The magnitude may reach 1<<63 when negative, one past math.MaxInt64.
	limit := uint64(math.MaxInt64)
	if negative {
		limit++
	}

	magnitude, err := parseDigits(whole)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", err, s)
	}
	hi, magnitude := bits.Mul64(magnitude, uint64(unit))
	if hi != 0 {
		return Zero, fmt.Errorf("%w: %q", ErrOverflow, s)
	}

	fraction = strings.TrimRight(fraction, "0")
	if fraction != "" {
		scale := uint64(unit)
		for range fraction {
			if scale%10 != 0 {
				return Zero, fmt.Errorf("%w: %q is not a whole number of Hz", ErrSyntax, s)
			}
			scale /= 10
		}
		digits, err := parseDigits(fraction)
		if err != nil {
			return Zero, fmt.Errorf("%w: %q", err, s)
		}
		// digits*scale < unit, so only the sum can overflow.
		var carry uint64
		magnitude, carry = bits.Add64(magnitude, digits*scale, 0)
		if carry != 0 {
			return Zero, fmt.Errorf("%w: %q", ErrOverflow, s)
		}
	}
	if magnitude > limit {
		return Zero, fmt.Errorf("%w: %q", ErrOverflow, s)
	}

	// int64(1<<63) is math.MinInt64, which negates to itself.
	value := int64(magnitude)
	if negative {
		value = -value
	}
	return Cycles(value), nil
}

func parseDigits(digits string) (uint64, error) {
	if digits == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, ErrOverflow
		}
		return 0, ErrSyntax
	}
	return v, nil
}

// MarshalText encodes c exactly, as "<n>Hz".
func (c Cycles) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(c), 10) + "Hz"), nil
}

// UnmarshalText decodes any form accepted by ParseCycles. Empty text decodes to Zero.
func (c *Cycles) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*c = Zero
		return nil
	}
	v, err := ParseCycles(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
