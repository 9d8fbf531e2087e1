// Package store provides the SQLite-backed decision ledger.
//
// The ledger is an append-only audit log of every decision the engine
// makes: which directory, which outcome, the rationale, the differing keys
// and a fingerprint of the requested parameter set.
//
// The ledger is strictly write-only from the engine's point of view. Disk
// state is the single source of truth for decisions, so nothing in the
// decision path ever reads a ledger row. Reads exist only for the history
// surface (`recalc history`).
//
// Ordering uses a logical seq column assigned at insert, so history
// listings are deterministic regardless of wall-clock resolution. All
// history queries order by seq ASC, id ASC.
//
// Database configuration:
//   - WAL mode for concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
