package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hartree/recalc/internal/decide"
	"github.com/hartree/recalc/internal/param"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func record(t *testing.T, l *Ledger, dir string, d *decide.Decision) {
	t.Helper()
	requested := param.Set{"NBANDS": param.Int(6)}
	require.NoError(t, l.RecordDecision(context.Background(), dir, requested, d))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(path)
	require.NoError(t, err)
	record(t, l, "/calc/a", &decide.Decision{Outcome: decide.OutcomeReuse, State: decide.StatePriorCompleteMatch})
	require.NoError(t, l.Close())

	// Reopening an existing ledger reapplies the schema without data loss.
	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()

	records, err := l.History(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecordDecision_RowContents(t *testing.T) {
	l := openTestLedger(t)

	d := &decide.Decision{
		Outcome:       decide.OutcomeResubmit,
		State:         decide.StatePriorCompleteMismatch,
		Rationale:     "parameters differ from prior run: NBANDS requested=6 found=8",
		DifferingKeys: []string{"NBANDS"},
	}
	record(t, l, "/calc/fe-bulk", d)

	records, err := l.History(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(1), rec.Seq)
	assert.Equal(t, "/calc/fe-bulk", rec.Dir)
	assert.Equal(t, "RESUBMIT", rec.Outcome)
	assert.Equal(t, "PRIOR_COMPLETE_MISMATCH", rec.State)
	assert.Equal(t, d.Rationale, rec.Rationale)
	assert.Equal(t, []string{"NBANDS"}, rec.DifferingKeys)
	assert.JSONEq(t, `{"NBANDS":6}`, rec.Requested)
	assert.Len(t, rec.Fingerprint, 64)
	assert.NotEmpty(t, rec.DecidedAt)
}

func TestRecordDecision_SequenceMonotonic(t *testing.T) {
	l := openTestLedger(t)

	for range 3 {
		record(t, l, "/calc/a", &decide.Decision{Outcome: decide.OutcomeReuse, State: decide.StatePriorCompleteMatch})
	}

	records, err := l.History(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.Seq)
	}
}

func TestRecordDecision_EmptyDifferingKeysStored(t *testing.T) {
	l := openTestLedger(t)
	record(t, l, "/calc/a", &decide.Decision{Outcome: decide.OutcomeReuse, State: decide.StatePriorCompleteMatch})

	records, err := l.History(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	// Nil in, empty list out; never a null column.
	assert.NotNil(t, records[0].DifferingKeys)
	assert.Empty(t, records[0].DifferingKeys)
}

func TestHistory_Filters(t *testing.T) {
	l := openTestLedger(t)
	record(t, l, "/calc/a", &decide.Decision{Outcome: decide.OutcomeReuse, State: decide.StatePriorCompleteMatch})
	record(t, l, "/calc/b", &decide.Decision{Outcome: decide.OutcomeResubmit, State: decide.StateNoPriorResult})
	record(t, l, "/calc/a", &decide.Decision{Outcome: decide.OutcomeResubmit, State: decide.StatePriorIncomplete})

	byDir, err := l.History(context.Background(), Filter{Dir: "/calc/a"})
	require.NoError(t, err)
	require.Len(t, byDir, 2)
	assert.Equal(t, int64(1), byDir[0].Seq)
	assert.Equal(t, int64(3), byDir[1].Seq)

	byOutcome, err := l.History(context.Background(), Filter{Outcome: "RESUBMIT"})
	require.NoError(t, err)
	assert.Len(t, byOutcome, 2)

	both, err := l.History(context.Background(), Filter{Dir: "/calc/a", Outcome: "RESUBMIT"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, int64(3), both[0].Seq)

	limited, err := l.History(context.Background(), Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestHistory_EmptyLedger(t *testing.T) {
	l := openTestLedger(t)

	records, err := l.History(context.Background(), Filter{})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFilterCompile(t *testing.T) {
	tests := []struct {
		name       string
		f          Filter
		wantSQL    string
		wantParams []any
	}{
		{"empty", Filter{}, " ORDER BY seq ASC, id ASC", nil},
		{"dir", Filter{Dir: "/calc/a"}, " WHERE dir = ? ORDER BY seq ASC, id ASC", []any{"/calc/a"}},
		{"outcome and limit", Filter{Outcome: "REUSE", Limit: 5},
			" WHERE outcome = ? ORDER BY seq ASC, id ASC LIMIT ?", []any{"REUSE", 5}},
		{"all", Filter{Dir: "/calc/a", Outcome: "RESUBMIT", Limit: 1},
			" WHERE dir = ? AND outcome = ? ORDER BY seq ASC, id ASC LIMIT ?", []any{"/calc/a", "RESUBMIT", 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params := tt.f.compile()
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}
