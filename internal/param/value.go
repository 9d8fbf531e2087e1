package param

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Value is a sealed interface over the allowed parameter value types.
// Only Int, Float, String, Bool, Vector, and Mapping implement it.
//
// Each tag carries its own equality rule (see Equal). There is deliberately
// no cross-tag coercion: a solver integer parameter recovered as 8 must be
// compared against a requested integer, not a float that happens to round
// to 8.
type Value interface {
	paramValue() // sealed
}

// Int is an integer-valued parameter (e.g. NBANDS, ISPIN, NSW).
type Int int64

func (Int) paramValue() {}

// Float is a real-valued parameter (e.g. ENCUT, SIGMA, EDIFF).
type Float float64

func (Float) paramValue() {}

// String is a string- or enum-valued parameter (e.g. PREC, GGA).
type String string

func (String) paramValue() {}

// Bool is a logical parameter (e.g. LWAVE, LCHARG).
type Bool bool

func (Bool) paramValue() {}

// Vector is a short sequence of values (e.g. MAGMOM, DIPOL).
// Elements are compared element-wise with each element's own rule.
type Vector []Value

func (Vector) paramValue() {}

// Mapping is a small keyed collection, used for per-species or per-atom
// overrides (e.g. LDAU U values keyed by species symbol).
type Mapping map[string]Value

func (Mapping) paramValue() {}

// DefaultFloatTolerance is the absolute tolerance used for Float equality
// when no per-key tolerance is configured in the registry.
const DefaultFloatTolerance = 1e-6

// Equal reports semantic equality of two values under the given float
// tolerance. Values of different tags are never equal.
func Equal(a, b Value, tol float64) bool {
	switch av := a.(type) {
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		if !ok {
			return false
		}
		return math.Abs(float64(av)-float64(bv)) <= tol
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Vector:
		bv, ok := b.(Vector)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i], tol) {
				return false
			}
		}
		return true
	case Mapping:
		bv, ok := b.(Mapping)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, present := bv[k]
			if !present || !Equal(v, bvv, tol) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Format renders a value the way rationale strings and the text formatter
// display it. Ints and bools render bare, floats with %g, strings unquoted,
// vectors bracketed, mappings as sorted key=value pairs.
func Format(v Value) string {
	switch val := v.(type) {
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case String:
		return string(val)
	case Bool:
		if val {
			return ".TRUE."
		}
		return ".FALSE."
	case Vector:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Format(elem)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case Mapping:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + Format(val[k])
		}
		return "{" + strings.Join(parts, " ") + "}"
	default:
		return fmt.Sprintf("<?%T>", v)
	}
}

// FromAny converts a plain Go value (as produced by yaml.v3 or encoding/json
// decoding into interface{}) into a Value. Integer-valued floats stay floats:
// the tag is decided by the decoded Go type, not the numeric value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a valid parameter value")
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q out of range: %w", val, err)
		}
		return Float(f), nil
	case []any:
		vec := make(Vector, len(val))
		for i, elem := range val {
			pv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("vector[%d]: %w", i, err)
			}
			vec[i] = pv
		}
		return vec, nil
	case map[string]any:
		m := make(Mapping, len(val))
		for k, elem := range val {
			pv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("mapping[%q]: %w", k, err)
			}
			m[k] = pv
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported parameter value type %T", v)
	}
}

// MarshalValue marshals a Value to JSON bytes using type-switch dispatch.
// Used by the ledger and the CLI json formatter.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Int:
		return json.Marshal(int64(val))
	case Float:
		return json.Marshal(float64(val))
	case String:
		return json.Marshal(string(val))
	case Bool:
		return json.Marshal(bool(val))
	case Vector:
		var b strings.Builder
		b.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			eb, err := MarshalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("vector[%d]: %w", i, err)
			}
			b.Write(eb)
		}
		b.WriteByte(']')
		return []byte(b.String()), nil
	case Mapping:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			b.Write(kb)
			b.WriteByte(':')
			vb, err := MarshalValue(val[k])
			if err != nil {
				return nil, fmt.Errorf("mapping[%q]: %w", k, err)
			}
			b.Write(vb)
		}
		b.WriteByte('}')
		return []byte(b.String()), nil
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}
