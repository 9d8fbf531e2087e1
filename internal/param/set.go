package param

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Set is a mapping from parameter name to Value. Parameter names are the
// solver's uppercase keywords (NBANDS, ENCUT, ...). A key absent from the
// set is "unspecified", which is never the same as a key present with a
// default value.
//
// Sets are treated as immutable once constructed. Helpers that derive a new
// set (Merge) always copy.
type Set map[string]Value

// NewSet builds a Set from plain Go values, normalizing keys to the solver's
// uppercase convention. Returns an error on the first unconvertible value.
func NewSet(values map[string]any) (Set, error) {
	s := make(Set, len(values))
	for k, v := range values {
		pv, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		s[strings.ToUpper(k)] = pv
	}
	return s, nil
}

// Get returns the value for key and whether it is present.
func (s Set) Get(key string) (Value, bool) {
	v, ok := s[key]
	return v, ok
}

// SortedKeys returns the set's keys in sorted order. All deterministic
// iteration over a Set (comparison output, canonical encoding, rationale
// strings) goes through this.
func (s Set) SortedKeys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge returns a new Set with overlay's entries taking precedence over the
// receiver's. Neither input is modified. Used to overlay OUTCAR-realized
// values on top of the as-written INCAR values.
func (s Set) Merge(overlay Set) Set {
	merged := make(Set, len(s)+len(overlay))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// MarshalJSON implements json.Marshaler with sorted keys so that encoded
// sets are byte-stable across runs.
func (s Set) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range s.SortedKeys() {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		b.Write(kb)
		b.WriteByte(':')
		vb, err := MarshalValue(s[k])
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}
