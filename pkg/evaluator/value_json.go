package evaluator

import (
	"encoding/json"
	"math"
)

// ValueToJSON marshals a Value to JSON bytes.
// Integers are emitted without a decimal point. Non-finite floats have no
// JSON form and are emitted as their display string.
func ValueToJSON(v Value) ([]byte, error) {
	return json.Marshal(valueToRaw(v))
}

// ValuesToJSON marshals a list of values as a JSON array.
func ValuesToJSON(vs []Value) ([]byte, error) {
	raw := make([]any, len(vs))
	for i, v := range vs {
		raw[i] = valueToRaw(v)
	}
	return json.Marshal(raw)
}

func valueToRaw(v Value) any {
	switch val := v.(type) {
	case BoolValue:
		return val.Value

	case NumberValue:
		n := val.Value
		if !n.IsFloat() {
			return n.Int64()
		}
		if f := n.Float64(); math.IsInf(f, 0) || math.IsNaN(f) {
			return n.String()
		}
		return json.Number(n.String())

	case StringValue:
		return val.Value
	}

	return nil
}

// ValueToJSONString is a convenience that returns a string.
func ValueToJSONString(v Value) string {
	b, err := ValueToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
