// Package value models the dynamic JSON-like values ALP programs operate on
// as a small sum type, the idiomatic Go replacement for a dynamically typed
// host language's "everything is an object": {Null, Bool, Int, Float, Str,
// Seq, Map}. Operation handlers and the validator pattern-match over Kind
// rather than relying on interface{} type switches scattered through the
// codebase.
package value

import "fmt"

// Kind discriminates the variant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindSeq
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value wraps a decoded JSON scalar/container. Seq and Map elements are
// themselves plain `any` (the natural encoding/json output: string, float64,
// bool, nil, []any, map[string]any) so that code exchanging values with
// encoding/json never needs a conversion pass; Of/Kind give typed access
// where a handler needs to branch on shape.
type Value struct {
	raw any
}

// Of wraps an arbitrary decoded JSON value (as produced by encoding/json,
// i.e. using float64 for all JSON numbers) into a Value.
func Of(raw any) Value { return Value{raw: raw} }

// Raw returns the underlying decoded value.
func (v Value) Raw() any { return v.raw }

// Kind classifies the value. Integral float64s are still KindFloat here —
// Int is reserved for values that originated as Go int/int64, which in
// practice means constants and op results computed in integer arithmetic.
// Validation (typesys) is what enforces "int means no fractional part".
func (v Value) Kind() Kind {
	switch t := v.raw.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int:
		return KindInt
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case float32:
		return KindFloat
	case string:
		return KindStr
	case []any:
		return KindSeq
	case map[string]any:
		return KindMap
	default:
		_ = t
		return KindNull
	}
}

// IsNumber reports whether the value is Int or Float.
func (v Value) IsNumber() bool {
	k := v.Kind()
	return k == KindInt || k == KindFloat
}

// Float64 coerces a numeric value to float64. ok is false for non-numbers.
func (v Value) Float64() (float64, bool) {
	switch n := v.raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Bool coerces to bool with the usual truthiness rules used by condition
// expressions: booleans and non-empty/non-zero scalars are truthy.
func (v Value) Bool() bool {
	switch t := v.raw.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// Str returns the string form when the value is KindStr, else ok=false.
func (v Value) Str() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok
}

// Seq returns the slice form when the value is KindSeq.
func (v Value) Seq() ([]any, bool) {
	s, ok := v.raw.([]any)
	return s, ok
}

// Map returns the map form when the value is KindMap.
func (v Value) Map() (map[string]any, bool) {
	m, ok := v.raw.(map[string]any)
	return m, ok
}

// Equal compares two values the way condition operators (eq/ne) do: by
// normalized scalar comparison, not by Go's == semantics (so 1 == 1.0).
func Equal(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// Less reports whether a < b under the ordering rules used by gt/gte/lt/lte:
// numeric comparison for numbers, lexical comparison for strings.
func Less(a, b any) (bool, bool) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af < bf, true
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs, true
	}
	return false, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// DeepCopy produces a structurally independent copy of a decoded JSON value,
// used wherever the kernel forks environment state (flow branches, for_each
// iterations) so that mutation in one branch cannot leak into another.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = DeepCopy(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = DeepCopy(vv)
		}
		return out
	default:
		return v
	}
}
