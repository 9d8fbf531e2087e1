package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hartree/recalc/internal/decide"
	"github.com/hartree/recalc/internal/param"
)

// RecordDecision appends one decision to the ledger. Implements
// decide.Recorder.
//
// The seq column is assigned inside the insert from the current maximum,
// which is safe under the single-connection configuration in Open.
func (l *Ledger) RecordDecision(ctx context.Context, dir string, requested param.Set, d *decide.Decision) error {
	requestedJSON, err := json.Marshal(requested)
	if err != nil {
		return fmt.Errorf("record decision: marshal requested set: %w", err)
	}

	fingerprint, err := param.Fingerprint(requested)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}

	differing := d.DifferingKeys
	if differing == nil {
		differing = []string{}
	}
	differingJSON, err := json.Marshal(differing)
	if err != nil {
		return fmt.Errorf("record decision: marshal differing keys: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO decisions
		(id, seq, dir, outcome, state, rationale, differing, requested, fingerprint, decided_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM decisions), ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		dir,
		string(d.Outcome),
		string(d.State),
		d.Rationale,
		string(differingJSON),
		string(requestedJSON),
		fingerprint,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}
