package param

import "fmt"

// Kind tags the value shape a parameter is allowed to take.
type Kind string

const (
	KindInt     Kind = "int"
	KindFloat   Kind = "float"
	KindString  Kind = "string"
	KindBool    Kind = "bool"
	KindVector  Kind = "vector"
	KindMapping Kind = "mapping"
)

// Rule is the comparison rule for one parameter key.
type Rule struct {
	// Kind constrains the value tag.
	Kind Kind

	// Tolerance is the absolute tolerance for float comparison. Zero means
	// DefaultFloatTolerance. Ignored for non-float kinds except Vector and
	// Mapping, where it applies to float elements.
	Tolerance float64

	// Enum, when non-empty, lists the allowed values for a string parameter.
	Enum []string
}

// tolerance returns the effective float tolerance for the rule.
func (r Rule) tolerance() float64 {
	if r.Tolerance > 0 {
		return r.Tolerance
	}
	return DefaultFloatTolerance
}

// Registry maps parameter keys to their comparison rules. The comparator
// fails closed on keys missing from the registry: with no rule there is no
// defensible way to call two values equal.
type Registry map[string]Rule

// Lookup returns the rule for key and whether the key is recognized.
func (r Registry) Lookup(key string) (Rule, bool) {
	rule, ok := r[key]
	return rule, ok
}

// Check validates a value against the rule's kind and enum constraints.
func (r Rule) Check(key string, v Value) error {
	ok := false
	switch r.Kind {
	case KindInt:
		_, ok = v.(Int)
	case KindFloat:
		_, ok = v.(Float)
	case KindString:
		sv, isStr := v.(String)
		ok = isStr
		if isStr && len(r.Enum) > 0 {
			allowed := false
			for _, e := range r.Enum {
				if string(sv) == e {
					allowed = true
					break
				}
			}
			if !allowed {
				return fmt.Errorf("parameter %s: value %q not in allowed set %v", key, string(sv), r.Enum)
			}
		}
	case KindBool:
		_, ok = v.(Bool)
	case KindVector:
		_, ok = v.(Vector)
	case KindMapping:
		_, ok = v.(Mapping)
	default:
		return fmt.Errorf("parameter %s: unknown kind %q", key, r.Kind)
	}
	if !ok {
		return fmt.Errorf("parameter %s: value %s does not match kind %s", key, Format(v), r.Kind)
	}
	return nil
}

// Equal compares two values under this rule's tolerance.
func (r Rule) Equal(a, b Value) bool {
	return Equal(a, b, r.tolerance())
}
