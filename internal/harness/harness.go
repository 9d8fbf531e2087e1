package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hartree/recalc/internal/calcdir"
	"github.com/hartree/recalc/internal/decide"
	"github.com/hartree/recalc/internal/param"
	"github.com/hartree/recalc/internal/schema"
	"github.com/hartree/recalc/internal/testutil"
)

// Run materializes the scenario's fixture, runs the decision engine, and
// returns the decision (or the error when the scenario expects one).
func Run(t *testing.T, s *Scenario) (*decide.Decision, error) {
	t.Helper()

	spec := testutil.CalcDirSpec{
		INCAR:     s.Dir.Incar,
		RawOutcar: s.Dir.OutcarText,
	}
	if s.Dir.Outcar != nil {
		oc := testutil.OutcarSpec{
			Params:     s.Dir.Outcar.Params,
			Incomplete: s.Dir.Outcar.Incomplete,
		}
		if n := s.Dir.Outcar.Notice; n != nil {
			oc.Notice = &testutil.BandNotice{Before: n.Before, After: n.After, Malformed: n.Malformed}
		}
		spec.Outcar = &oc
	}
	dirPath := testutil.WriteCalcDir(t, spec)

	requested, err := param.NewSet(s.Requested)
	require.NoError(t, err, "scenario %s: requested set", s.Name)

	reg, err := schema.Default()
	require.NoError(t, err, "scenario %s: schema", s.Name)

	engine := decide.New(reg)
	return engine.Decide(context.Background(), requested, calcdir.New(dirPath))
}

// CheckExpect asserts the decision (or error) against the scenario's
// expectation.
func CheckExpect(t *testing.T, s *Scenario, d *decide.Decision, err error) {
	t.Helper()

	if s.Expect.Error != "" {
		require.Error(t, err, "scenario %s: expected an error", s.Name)
		assert.Contains(t, err.Error(), s.Expect.Error, "scenario %s: error text", s.Name)
		return
	}

	require.NoError(t, err, "scenario %s", s.Name)
	require.NotNil(t, d, "scenario %s: decision", s.Name)

	assert.Equal(t, s.Expect.Outcome, string(d.Outcome), "scenario %s: outcome", s.Name)
	if s.Expect.State != "" {
		assert.Equal(t, s.Expect.State, string(d.State), "scenario %s: state", s.Name)
	}
	for _, substr := range s.Expect.RationaleContains {
		assert.Contains(t, d.Rationale, substr, "scenario %s: rationale", s.Name)
	}
	if s.Expect.DifferingKeys != nil {
		assert.Equal(t, s.Expect.DifferingKeys, d.DifferingKeys, "scenario %s: differing keys", s.Name)
	}
}
