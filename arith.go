package cyclesreader

import (
	"fmt"
	"math"
)

// Every operation comes in two forms. The Checked form reports ErrOverflow or
// ErrDivideByZero; the short form panics with the same error and is meant for
// values already known to be in range.

// CheckedAdd returns c+o.
func (c Cycles) CheckedAdd(o Cycles) (Cycles, error) {
	s, ok := addInt64(int64(c), int64(o))
	if !ok {
		return Zero, fmt.Errorf("%w: %d + %d", ErrOverflow, c, o)
	}
	return Cycles(s), nil
}

// CheckedSub returns c-o.
func (c Cycles) CheckedSub(o Cycles) (Cycles, error) {
	d, ok := subInt64(int64(c), int64(o))
	if !ok {
		return Zero, fmt.Errorf("%w: %d - %d", ErrOverflow, c, o)
	}
	return Cycles(d), nil
}

// CheckedNeg returns -c.
func (c Cycles) CheckedNeg() (Cycles, error) {
	if c == math.MinInt64 {
		return Zero, fmt.Errorf("%w: -(%d)", ErrOverflow, c)
	}
	return -c, nil
}

// CheckedMul returns c*n.
func (c Cycles) CheckedMul(n int64) (Cycles, error) {
	p, ok := mulInt64(int64(c), n)
	if !ok {
		return Zero, fmt.Errorf("%w: %d * %d", ErrOverflow, c, n)
	}
	return Cycles(p), nil
}

// CheckedMulFloat returns c*f truncated toward zero.
func (c Cycles) CheckedMulFloat(f float64) (Cycles, error) {
	return fromFloat(float64(c) * f)
}

// CheckedDiv returns c/n truncated toward zero.
func (c Cycles) CheckedDiv(n int64) (Cycles, error) {
	if n == 0 {
		return Zero, fmt.Errorf("%w: %d / 0", ErrDivideByZero, c)
	}
	if c == math.MinInt64 && n == -1 {
		return Zero, fmt.Errorf("%w: %d / -1", ErrOverflow, c)
	}
	return c / Cycles(n), nil
}

// CheckedDivFloat returns c/f truncated toward zero.
func (c Cycles) CheckedDivFloat(f float64) (Cycles, error) {
	if f == 0 {
		return Zero, fmt.Errorf("%w: %d / 0", ErrDivideByZero, c)
	}
	return fromFloat(float64(c) / f)
}

// CheckedRem returns c%n with the sign of c.
func (c Cycles) CheckedRem(n int64) (Cycles, error) {
	if n == 0 {
		return Zero, fmt.Errorf("%w: %d %% 0", ErrDivideByZero, c)
	}
	return c % Cycles(n), nil
}

// Add returns c+o and panics on overflow.
func (c Cycles) Add(o Cycles) Cycles { return must(c.CheckedAdd(o)) }

// Sub returns c-o and panics on overflow.
func (c Cycles) Sub(o Cycles) Cycles { return must(c.CheckedSub(o)) }

// Neg returns -c and panics on overflow.
func (c Cycles) Neg() Cycles { return must(c.CheckedNeg()) }

// Mul returns c*n and panics on overflow.
func (c Cycles) Mul(n int64) Cycles { return must(c.CheckedMul(n)) }

// MulFloat returns c*f and panics when the result is not representable.
func (c Cycles) MulFloat(f float64) Cycles { return must(c.CheckedMulFloat(f)) }

// Div returns c/n and panics on a zero divisor or overflow.
func (c Cycles) Div(n int64) Cycles { return must(c.CheckedDiv(n)) }

// DivFloat returns c/f and panics on a zero divisor or overflow.
func (c Cycles) DivFloat(f float64) Cycles { return must(c.CheckedDivFloat(f)) }

// Rem returns c%n and panics on a zero divisor.
func (c Cycles) Rem(n int64) Cycles { return must(c.CheckedRem(n)) }

// Sum adds values, failing on the first overflow.
func Sum(values ...Cycles) (Cycles, error) {
	total := Zero
	for _, v := range values {
		var err error
		if total, err = total.CheckedAdd(v); err != nil {
			return Zero, err
		}
	}
	return total, nil
}

func must(c Cycles, err error) Cycles {
	if err != nil {
		panic(err)
	}
	return c
}

// fromFloat truncates f toward zero. 2^63 itself is out of range.
func fromFloat(f float64) (Cycles, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= 1<<63 || f < -(1<<63) {
		return Zero, fmt.Errorf("%w: %v", ErrOverflow, f)
	}
	return Cycles(f), nil
}

func addInt64(a, b int64) (int64, bool) {
	s := a + b
	return s, (a^s)&(b^s) >= 0
}

func subInt64(a, b int64) (int64, bool) {
	d := a - b
	return d, (a^b)&(a^d) >= 0
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || p/b != a {
		return 0, false
	}
	return p, true
}
