// Package param provides the parameter value model for recalc.
//
// This package contains type definitions and equality rules only. All other
// internal packages import param; param imports nothing internal. This keeps
// the value model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Values are a sealed tagged variant (Int, Float, String, Bool, Vector,
//     Mapping) with an explicit equality rule per tag. No runtime coercion
//     between tags: an Int never equals a Float.
//   - A ParameterSet is immutable by convention once built from a request;
//     nothing in this package mutates a set after construction.
//   - Absent keys mean "unspecified", never "default". Comparison code must
//     not invent defaults for missing keys.
package param
