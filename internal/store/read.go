package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Record is one ledger row as returned by History.
type Record struct {
	ID            string   `json:"id"`
	Seq           int64    `json:"seq"`
	Dir           string   `json:"dir"`
	Outcome       string   `json:"outcome"`
	State         string   `json:"state"`
	Rationale     string   `json:"rationale"`
	DifferingKeys []string `json:"differing_keys"`
	Requested     string   `json:"requested"`
	Fingerprint   string   `json:"fingerprint"`
	DecidedAt     string   `json:"decided_at"`
}

// Filter narrows a history query. Zero-valued fields are not applied.
type Filter struct {
	// Dir restricts to decisions for one calculation directory.
	Dir string

	// Outcome restricts to one outcome (REUSE, RESUBMIT, WARN_AND_REUSE).
	Outcome string

	// Limit caps the number of rows returned; 0 means no cap.
	Limit int
}

// compile turns the filter into a parameterized WHERE/LIMIT suffix.
// Values are always parameterized, never interpolated. Every query carries
// ORDER BY seq ASC, id ASC so listings are deterministic.
func (f Filter) compile() (string, []any) {
	var clauses []string
	var params []any
	if f.Dir != "" {
		clauses = append(clauses, "dir = ?")
		params = append(params, f.Dir)
	}
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		params = append(params, f.Outcome)
	}

	var sql string
	if len(clauses) > 0 {
		sql = " WHERE " + strings.Join(clauses, " AND ")
	}
	sql += " ORDER BY seq ASC, id ASC"
	if f.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, f.Limit)
	}
	return sql, params
}

// History returns ledger rows matching the filter in seq order.
// Returns an empty slice, not nil, when nothing matches.
func (l *Ledger) History(ctx context.Context, f Filter) ([]Record, error) {
	suffix, params := f.compile()
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, seq, dir, outcome, state, rationale, differing, requested, fingerprint, decided_at
		FROM decisions`+suffix, params...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var differing string
		if err := rows.Scan(
			&rec.ID, &rec.Seq, &rec.Dir, &rec.Outcome, &rec.State,
			&rec.Rationale, &differing, &rec.Requested, &rec.Fingerprint, &rec.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if err := json.Unmarshal([]byte(differing), &rec.DifferingKeys); err != nil {
			return nil, fmt.Errorf("decode differing keys for %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}
