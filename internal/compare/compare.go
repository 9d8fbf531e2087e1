// Package compare diffs a requested parameter set against the set recovered
// from a prior run.
//
// Comparison is key-wise under semantic equality: numeric tolerance for
// floats, exact match for ints, strings and bools, element-wise for vectors
// and mappings. Keys unspecified in the request are never differences; this
// deliberately extends to recovered-only keys, which by the same rule have
// no requested value to disagree with and never appear in the diff.
// A requested key with no rule in the registry fails closed: it is reported
// as a difference that no diagnostic notice can ever explain, because
// silently ignoring an unrecognized parameter could mask a wrong cache hit.
package compare

import (
	"github.com/hartree/recalc/internal/param"
)

// Difference is one key whose requested and recovered values disagree.
type Difference struct {
	// Key is the parameter name.
	Key string

	// Requested is the value from the request.
	Requested param.Value

	// Recovered is the value recovered from the prior run; nil when the
	// prior run never realized the key.
	Recovered param.Value

	// Unknown marks a requested key the registry has no rule for. Unknown
	// differences can never be explained by a diagnostic notice.
	Unknown bool
}

// Compare returns the keys whose values differ between requested and
// recovered, in sorted requested-key order. Rationale strings depend on
// this ordering being reproducible.
//
// Keys on only one side are "unspecified" and never differences: the
// request is the contract, and what the solver realized beyond it cannot
// disagree with anything.
func Compare(requested, recovered param.Set, reg param.Registry) []Difference {
	var diffs []Difference

	for _, key := range requested.SortedKeys() {
		req := requested[key]
		rule, known := reg.Lookup(key)
		if !known {
			diffs = append(diffs, Difference{Key: key, Requested: req, Recovered: recovered[key], Unknown: true})
			continue
		}
		rec, present := recovered.Get(key)
		if !present {
			// Absent keys are unspecified on either side. The prior run
			// never recorded this key, so there is nothing to disagree with.
			continue
		}
		if !rule.Equal(req, rec) {
			diffs = append(diffs, Difference{Key: key, Requested: req, Recovered: rec})
		}
	}

	return diffs
}
