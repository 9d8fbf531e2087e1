// Package schema defines the recognized solver parameters as an embedded
// CUE schema and compiles it into the comparison registry.
//
// Keeping the parameter catalogue in CUE (rather than a Go table) keeps the
// kind/tolerance/enum constraints declarative and lets the schema file be
// reviewed on its own. A requested key absent from the schema is exactly
// the comparator's fail-closed unknown-parameter case.
package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/hartree/recalc/internal/param"
)

//go:embed params.cue
var paramsCUE string

// SchemaError reports a problem compiling the embedded schema or validating
// a set against it.
type SchemaError struct {
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema: %s: %s", e.Field, e.Message)
	}
	return "schema: " + e.Message
}

// Load compiles the embedded CUE schema into a param.Registry.
func Load() (param.Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(paramsCUE, cue.Filename("params.cue"))
	if err := v.Err(); err != nil {
		return nil, &SchemaError{Message: fmt.Sprintf("compiling embedded schema: %v", err)}
	}

	paramsVal := v.LookupPath(cue.ParsePath("parameter"))
	if !paramsVal.Exists() {
		return nil, &SchemaError{Field: "parameter", Message: "missing parameter block"}
	}

	iter, err := paramsVal.Fields()
	if err != nil {
		return nil, &SchemaError{Field: "parameter", Message: fmt.Sprintf("iterating parameters: %v", err)}
	}

	reg := make(param.Registry)
	for iter.Next() {
		key := iter.Selector().Unquoted()
		rule, err := compileRule(iter.Value())
		if err != nil {
			return nil, &SchemaError{Field: "parameter." + key, Message: err.Error()}
		}
		reg[key] = rule
	}
	if len(reg) == 0 {
		return nil, &SchemaError{Field: "parameter", Message: "no parameters defined"}
	}
	return reg, nil
}

func compileRule(v cue.Value) (param.Rule, error) {
	var rule param.Rule

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return rule, fmt.Errorf("kind is required")
	}
	kind, err := kindVal.String()
	if err != nil {
		return rule, fmt.Errorf("kind: %v", err)
	}
	rule.Kind = param.Kind(kind)

	tolVal := v.LookupPath(cue.ParsePath("tolerance"))
	if tolVal.Exists() {
		tol, err := tolVal.Float64()
		if err != nil {
			return rule, fmt.Errorf("tolerance: %v", err)
		}
		rule.Tolerance = tol
	}

	enumVal := v.LookupPath(cue.ParsePath("enum"))
	if enumVal.Exists() {
		list, err := enumVal.List()
		if err != nil {
			return rule, fmt.Errorf("enum: %v", err)
		}
		for list.Next() {
			s, err := list.Value().String()
			if err != nil {
				return rule, fmt.Errorf("enum element: %v", err)
			}
			rule.Enum = append(rule.Enum, s)
		}
	}

	return rule, nil
}

var (
	defaultOnce sync.Once
	defaultReg  param.Registry
	defaultErr  error
)

// Default returns the registry compiled from the embedded schema, compiling
// it at most once per process.
func Default() (param.Registry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Load()
	})
	return defaultReg, defaultErr
}

// Validate checks every key of s that the registry recognizes against its
// kind and enum constraints. Unknown keys are not an error here; the
// comparator reports them as fail-closed differences.
func Validate(reg param.Registry, s param.Set) error {
	for _, key := range s.SortedKeys() {
		rule, known := reg.Lookup(key)
		if !known {
			continue
		}
		if err := rule.Check(key, s[key]); err != nil {
			return &SchemaError{Field: key, Message: err.Error()}
		}
	}
	return nil
}
