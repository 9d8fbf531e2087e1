package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenarioFile(t, `
name: minimal
dir:
  incar: "NBANDS = 6\n"
requested:
  NBANDS: 6
expect:
  outcome: RESUBMIT
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, "RESUBMIT", s.Expect.Outcome)
}

func TestLoadScenario_MissingName(t *testing.T) {
	path := writeScenarioFile(t, `
dir:
  incar: "NBANDS = 6\n"
expect:
  outcome: RESUBMIT
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoadScenario_MissingExpectation(t *testing.T) {
	path := writeScenarioFile(t, `
name: no-expectation
dir:
  incar: "NBANDS = 6\n"
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expect.outcome or expect.error")
}

func TestLoadScenarios_SortedAndComplete(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	// File-name ordering keeps the suite deterministic.
	assert.Equal(t, []string{
		"no-prior-result",
		"exact-match",
		"band-auto-adjust",
		"unexplained-band-change",
		"partially-explained",
		"incomplete-run",
		"malformed-banner",
		"unknown-parameter",
	}, names)
}
