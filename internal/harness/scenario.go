package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one decision conformance scenario.
type Scenario struct {
	// Name uniquely identifies the scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Dir describes the calculation directory fixture.
	Dir DirFixture `yaml:"dir"`

	// Requested is the requested parameter set, as plain YAML values.
	Requested map[string]any `yaml:"requested"`

	// Expect is the expected decision.
	Expect Expect `yaml:"expect"`
}

// DirFixture describes the on-disk fixture for a scenario.
type DirFixture struct {
	// Incar is the raw INCAR content; empty writes no INCAR.
	Incar string `yaml:"incar,omitempty"`

	// Outcar describes a synthetic output log. Nil with an empty
	// OutcarText means no OUTCAR at all (the no-prior-result case).
	Outcar *OutcarFixture `yaml:"outcar,omitempty"`

	// OutcarText is verbatim OUTCAR content, for scenarios exercising
	// exact line shapes. Takes precedence over Outcar.
	OutcarText string `yaml:"outcar_text,omitempty"`
}

// OutcarFixture mirrors testutil.OutcarSpec in YAML form.
type OutcarFixture struct {
	Params     map[string]string `yaml:"params"`
	Notice     *NoticeFixture    `yaml:"notice,omitempty"`
	Incomplete bool              `yaml:"incomplete,omitempty"`
}

// NoticeFixture describes an embedded band-adjustment banner.
type NoticeFixture struct {
	Before    int64 `yaml:"before"`
	After     int64 `yaml:"after"`
	Malformed bool  `yaml:"malformed,omitempty"`
}

// Expect is the expected decision for a scenario.
type Expect struct {
	// Outcome is the expected verdict (REUSE | RESUBMIT | WARN_AND_REUSE).
	// Empty when Error is set.
	Outcome string `yaml:"outcome,omitempty"`

	// State is the expected result-store state; optional.
	State string `yaml:"state,omitempty"`

	// RationaleContains lists substrings the rationale must include.
	RationaleContains []string `yaml:"rationale_contains,omitempty"`

	// DifferingKeys is the exact expected differing-key list; optional.
	DifferingKeys []string `yaml:"differing_keys,omitempty"`

	// Error expects the decide call to fail, with the given substring in
	// the error text. Used for the malformed-diagnostic scenarios.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and validates a single scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if s.Expect.Outcome == "" && s.Expect.Error == "" {
		return nil, fmt.Errorf("scenario %s: expect.outcome or expect.error is required", path)
	}
	return &s, nil
}

// LoadScenarios reads every scenario under dir, sorted by file name for a
// deterministic test order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}
