// Package number implements the dual-kind numeric type of the lox language.
//
// A Number is either an integer or a float. Arithmetic and comparison are
// only defined between two numbers of the same kind; there is no implicit
// widening from integer to float.
package number

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind tags which representation a Number holds.
type Kind int

const (
	Integer Kind = iota
	Float
)

func (k Kind) String() string {
	if k == Float {
		return "float"
	}
	return "integer"
}

var (
	// ErrKindMismatch is returned when an operation mixes integer and float operands.
	ErrKindMismatch = errors.New("mixed integer and float operands")
	// ErrDivisionByZero is returned for integer division by zero.
	ErrDivisionByZero = errors.New("integer division by zero")
)

// Number is an integer or float magnitude.
type Number struct {
	kind Kind
	i    int64
	f    float64
}

// Int creates an integer Number.
func Int(i int64) Number {
	return Number{kind: Integer, i: i}
}

// FloatOf creates a float Number.
func FloatOf(f float64) Number {
	return Number{kind: Float, f: f}
}

// Parse converts a lexeme into a Number. A lexeme containing a '.' is a float.
func Parse(text string) (Number, error) {
	for i := 0; i < len(text); i++ {
		if text[i] == '.' {
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return Number{}, err
			}
			return FloatOf(f), nil
		}
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Number{}, err
	}
	return Int(i), nil
}

// Kind reports the representation of n.
func (n Number) Kind() Kind { return n.kind }

// IsFloat reports whether n holds a float.
func (n Number) IsFloat() bool { return n.kind == Float }

// Int64 returns the integer magnitude. It is zero for floats.
func (n Number) Int64() int64 { return n.i }

// Float64 returns the float magnitude. It is zero for integers.
func (n Number) Float64() float64 { return n.f }

func (n Number) sameKind(m Number) error {
	if n.kind != m.kind {
		return fmt.Errorf("%w: %s and %s", ErrKindMismatch, n.kind, m.kind)
	}
	return nil
}

// Add returns n + m.
func (n Number) Add(m Number) (Number, error) {
	if err := n.sameKind(m); err != nil {
		return Number{}, err
	}
	if n.kind == Float {
		return FloatOf(n.f + m.f), nil
	}
	return Int(n.i + m.i), nil
}

// Sub returns n - m.
func (n Number) Sub(m Number) (Number, error) {
	if err := n.sameKind(m); err != nil {
		return Number{}, err
	}
	if n.kind == Float {
		return FloatOf(n.f - m.f), nil
	}
	return Int(n.i - m.i), nil
}

// Mul returns n * m.
func (n Number) Mul(m Number) (Number, error) {
	if err := n.sameKind(m); err != nil {
		return Number{}, err
	}
	if n.kind == Float {
		return FloatOf(n.f * m.f), nil
	}
	return Int(n.i * m.i), nil
}

// Div returns n / m. Integer division truncates toward zero; float division
// follows IEEE-754, so dividing a float by zero yields an infinity or NaN.
func (n Number) Div(m Number) (Number, error) {
	if err := n.sameKind(m); err != nil {
		return Number{}, err
	}
	if n.kind == Float {
		return FloatOf(n.f / m.f), nil
	}
	if m.i == 0 {
		return Number{}, ErrDivisionByZero
	}
	return Int(n.i / m.i), nil
}

// Neg returns -n, preserving its kind.
func (n Number) Neg() Number {
	if n.kind == Float {
		return FloatOf(-n.f)
	}
	return Int(-n.i)
}

// Less reports whether n < m.
func (n Number) Less(m Number) (bool, error) {
	if err := n.sameKind(m); err != nil {
		return false, err
	}
	if n.kind == Float {
		return n.f < m.f, nil
	}
	return n.i < m.i, nil
}

// LessEqual reports whether n <= m.
func (n Number) LessEqual(m Number) (bool, error) {
	if err := n.sameKind(m); err != nil {
		return false, err
	}
	if n.kind == Float {
		return n.f <= m.f, nil
	}
	return n.i <= m.i, nil
}

// Greater reports whether n > m.
func (n Number) Greater(m Number) (bool, error) {
	return m.Less(n)
}

// GreaterEqual reports whether n >= m.
func (n Number) GreaterEqual(m Number) (bool, error) {
	return m.LessEqual(n)
}

// EqualTo reports whether n == m, failing when the kinds differ.
func (n Number) EqualTo(m Number) (bool, error) {
	if err := n.sameKind(m); err != nil {
		return false, err
	}
	return n.Equal(m), nil
}

// Equal reports whether n and m are the same kind and magnitude.
func (n Number) Equal(m Number) bool {
	if n.kind != m.kind {
		return false
	}
	if n.kind == Float {
		return n.f == m.f
	}
	return n.i == m.i
}

// String renders n in ordinary decimal notation without a type suffix.
func (n Number) String() string {
	if n.kind == Float {
		return strconv.FormatFloat(n.f, 'f', -1, 64)
	}
	return strconv.FormatInt(n.i, 10)
}
