package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// decisionSnapshot is the golden-file shape of a decision. The fixture
// directory path is deliberately excluded: it is a temp dir and would
// change every run.
type decisionSnapshot struct {
	Scenario      string   `json:"scenario"`
	Outcome       string   `json:"outcome"`
	State         string   `json:"state"`
	Rationale     string   `json:"rationale"`
	DifferingKeys []string `json:"differing_keys,omitempty"`
}

// RunWithGolden runs the scenario and compares the decision snapshot
// against testdata/golden/{name}.golden. Error-expecting scenarios golden
// the error text instead.
func RunWithGolden(t *testing.T, s *Scenario) {
	t.Helper()

	d, err := Run(t, s)
	CheckExpect(t, s, d, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	if s.Expect.Error != "" {
		// Error text contains the temp path; golden only the scenario name
		// and the expectation that was met.
		g.Assert(t, s.Name, []byte("error: "+s.Expect.Error+"\n"))
		return
	}

	snap := decisionSnapshot{
		Scenario:      s.Name,
		Outcome:       string(d.Outcome),
		State:         string(d.State),
		Rationale:     d.Rationale,
		DifferingKeys: d.DifferingKeys,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	require.NoError(t, err)
	g.Assert(t, s.Name, append(data, '\n'))
}
