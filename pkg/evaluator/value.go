// Package evaluator implements the lox tree-walking evaluator.
package evaluator

import (
	"strconv"

	"github.com/thomasrohde/lox/pkg/number"
)

// Value is the interface for all runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// NilValue is the absence of a value.
type NilValue struct{}

func (NilValue) value() {}

// BoolValue represents a boolean value.
type BoolValue struct {
	Value bool
}

func (BoolValue) value() {}

// NumberValue represents an integer or float.
type NumberValue struct {
	Value number.Number
}

func (NumberValue) value() {}

// StringValue represents a string value.
type StringValue struct {
	Value string
}

func (StringValue) value() {}

// NewNil creates a nil value.
func NewNil() Value {
	return NilValue{}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return BoolValue{Value: b}
}

// NewNumber creates a numeric value.
func NewNumber(n number.Number) Value {
	return NumberValue{Value: n}
}

// NewInt creates an integer value.
func NewInt(i int64) Value {
	return NumberValue{Value: number.Int(i)}
}

// NewFloat creates a float value.
func NewFloat(f float64) Value {
	return NumberValue{Value: number.FloatOf(f)}
}

// NewString creates a string value.
func NewString(s string) Value {
	return StringValue{Value: s}
}

// Display renders v the way print emits it: numbers in plain decimal, strings
// without quotes.
func Display(v Value) string {
	switch val := v.(type) {
	case BoolValue:
		return strconv.FormatBool(val.Value)
	case NumberValue:
		return val.Value.String()
	case StringValue:
		return val.Value
	default:
		return "nil"
	}
}

// TypeName names the kind of v for diagnostics. Numbers report their
// representation.
func TypeName(v Value) string {
	switch val := v.(type) {
	case NilValue:
		return "nil"
	case BoolValue:
		return "boolean"
	case NumberValue:
		return val.Value.Kind().String()
	case StringValue:
		return "string"
	default:
		return "unknown"
	}
}

// Equal reports whether a and b are the same kind and hold the same value.
// It is a host-side comparison and does not follow the language's rules for
// ==, which reject most pairings.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case NilValue:
		_, ok := b.(NilValue)
		return ok
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && av.Value == bv.Value
	case NumberValue:
		bv, ok := b.(NumberValue)
		return ok && av.Value.Equal(bv.Value)
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && av.Value == bv.Value
	}
	return false
}
