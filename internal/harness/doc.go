// Package harness runs YAML-described decision scenarios for conformance
// testing.
//
// A scenario declares a calculation directory fixture (INCAR content and a
// synthetic or verbatim OUTCAR), the requested parameter set, and the
// expected decision. The runner materializes the fixture in a temp
// directory, runs the decision engine against it, and checks the
// expectation. Golden snapshots of the full decision (outcome, state,
// rationale, differing keys) guard the exact rationale wording.
//
// Scenario files live in testdata/scenarios, goldens in testdata/golden.
// Regenerate goldens with:
//
//	go test ./internal/harness -update
package harness
