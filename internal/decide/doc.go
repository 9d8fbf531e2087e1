// Package decide is the decision engine: given a requested parameter set
// and a calculation directory, it decides whether the stored result can be
// reused or the job must be resubmitted.
//
// The decision is a value, not an exception. Callers branch on
// Decision.Outcome; parse-level failures are the only errors Decide
// returns, and they are never reinterpreted as a resubmission.
//
// Every call derives its state fresh from disk. The engine holds no cache
// and no cross-call state: two calls against an unchanged directory return
// the same decision and rationale. Independent directories may be decided
// concurrently; nothing here is shared or mutable per call.
package decide
