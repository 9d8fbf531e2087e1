package decide

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hartree/recalc/internal/calcdir"
	"github.com/hartree/recalc/internal/compare"
	"github.com/hartree/recalc/internal/outcar"
	"github.com/hartree/recalc/internal/param"
)

// Outcome is the engine's verdict.
type Outcome string

const (
	// OutcomeReuse means the stored result satisfies the request as-is.
	OutcomeReuse Outcome = "REUSE"

	// OutcomeResubmit means a new job must be queued.
	OutcomeResubmit Outcome = "RESUBMIT"

	// OutcomeWarnAndReuse means the stored result differs from the request
	// only by overrides the solver itself performed and reported; it is
	// treated as a valid cache hit, with a warning.
	OutcomeWarnAndReuse Outcome = "WARN_AND_REUSE"
)

// State names the condition of the result store the decision derived from.
// State is recomputed on every call; there is no persistent machine.
type State string

const (
	StateNoPriorResult         State = "NO_PRIOR_RESULT"
	StatePriorIncomplete       State = "PRIOR_INCOMPLETE"
	StatePriorCompleteMatch    State = "PRIOR_COMPLETE_MATCH"
	StatePriorCompleteMismatch State = "PRIOR_COMPLETE_MISMATCH"
)

// Decision is the engine's result for one call.
type Decision struct {
	Outcome Outcome `json:"outcome"`

	// State is the result-store condition the outcome derived from.
	State State `json:"state"`

	// Rationale is a human-readable explanation suitable for direct
	// display or logging.
	Rationale string `json:"rationale"`

	// DifferingKeys lists the parameter keys that differed, in the
	// comparator's deterministic order. Empty on REUSE.
	DifferingKeys []string `json:"differing_keys,omitempty"`
}

// Resubmitter is the narrow view of the job controller the engine needs.
// It is invoked only on a RESUBMIT outcome. Submission mechanics (queue
// scripts, monitoring, retries) live entirely behind this interface.
type Resubmitter interface {
	Resubmit(ctx context.Context, dir calcdir.Dir, requested param.Set) error
}

// Recorder receives every decision for audit purposes. Implementations
// must be append-only observers: the engine never reads a recorded
// decision back.
type Recorder interface {
	RecordDecision(ctx context.Context, dir string, requested param.Set, d *Decision) error
}

// Engine decides cache-hit versus resubmit for calculation directories.
// An Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	reg         param.Registry
	logger      *slog.Logger
	resubmitter Resubmitter
	recorder    Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithResubmitter sets the job controller callback invoked on RESUBMIT.
// Without one, RESUBMIT decisions are returned but nothing is queued.
func WithResubmitter(r Resubmitter) Option {
	return func(e *Engine) { e.resubmitter = r }
}

// WithRecorder sets the audit recorder. Recording failures are logged,
// not returned: the decision itself is already made and correct.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New creates an Engine using the given comparison registry.
func New(reg param.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:    reg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide evaluates the request against the directory's stored result.
//
// Errors: a malformed output log (*outcar.ParseError) or an unreadable
// INCAR propagates as an error — a data-integrity problem must not be
// papered over by recomputation. Every other condition, including an
// incomplete prior run, is expressed in the returned Decision.
func (e *Engine) Decide(ctx context.Context, requested param.Set, dir calcdir.Dir) (*Decision, error) {
	d, err := e.evaluate(requested, dir)
	if err != nil {
		return nil, err
	}

	e.logger.Info("decision",
		"dir", dir.Path(),
		"state", string(d.State),
		"outcome", string(d.Outcome),
		"differing_keys", d.DifferingKeys,
	)

	if e.recorder != nil {
		if rerr := e.recorder.RecordDecision(ctx, dir.Path(), requested, d); rerr != nil {
			e.logger.Error("recording decision failed", "dir", dir.Path(), "error", rerr)
		}
	}

	if d.Outcome == OutcomeResubmit && e.resubmitter != nil {
		if serr := e.resubmitter.Resubmit(ctx, dir, requested); serr != nil {
			return d, fmt.Errorf("resubmit %s: %w", dir.Path(), serr)
		}
	}

	return d, nil
}

// evaluate derives the decision from disk state. Pure with respect to the
// engine: no logging, no side effects.
func (e *Engine) evaluate(requested param.Set, dir calcdir.Dir) (*Decision, error) {
	if !dir.HasOutput() {
		return &Decision{
			Outcome:   OutcomeResubmit,
			State:     StateNoPriorResult,
			Rationale: "no prior result",
		}, nil
	}

	rec, err := outcar.Parse(dir.OutcarPath())
	if errors.Is(err, outcar.ErrIncompleteRun) {
		return &Decision{
			Outcome:   OutcomeResubmit,
			State:     StatePriorIncomplete,
			Rationale: "prior run incomplete",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	incar, err := dir.ReadINCAR()
	if err != nil {
		return nil, err
	}
	// Realized values win over as-written ones.
	recovered := incar.Merge(rec.Params)

	diffs := compare.Compare(requested, recovered, e.reg)
	if len(diffs) == 0 {
		return &Decision{
			Outcome:   OutcomeReuse,
			State:     StatePriorCompleteMatch,
			Rationale: "parameters match prior run",
		}, nil
	}

	keys := make([]string, len(diffs))
	details := make([]string, len(diffs))
	allExplained := true
	for i, diff := range diffs {
		keys[i] = diff.Key
		if cause, ok := explain(diff, rec.Notices); ok {
			details[i] = fmt.Sprintf("%s requested=%s found=%s (%s)",
				diff.Key, param.Format(diff.Requested), param.Format(diff.Recovered), causeText(cause))
			continue
		}
		allExplained = false
		details[i] = describeUnexplained(diff)
	}

	if allExplained {
		return &Decision{
			Outcome:       OutcomeWarnAndReuse,
			State:         StatePriorCompleteMismatch,
			Rationale:     strings.Join(details, "; ") + "; treating as valid cache hit",
			DifferingKeys: keys,
		}, nil
	}

	return &Decision{
		Outcome:       OutcomeResubmit,
		State:         StatePriorCompleteMismatch,
		Rationale:     "parameters differ from prior run: " + strings.Join(details, "; "),
		DifferingKeys: keys,
	}, nil
}

// explain reports whether a diagnostic notice fully accounts for the
// difference: same key, a benign cause, the notice's before equal to the
// requested value and its after equal to the recovered value. Partial
// matches explain nothing.
func explain(diff compare.Difference, notices []outcar.Notice) (outcar.NoticeCause, bool) {
	if diff.Unknown {
		return "", false
	}
	reqInt, reqOK := diff.Requested.(param.Int)
	recInt, recOK := diff.Recovered.(param.Int)
	if !reqOK || !recOK {
		// Only integer overrides are reported by the solver today.
		return "", false
	}
	for _, n := range notices {
		if n.Cause == outcar.CauseUnknown {
			continue
		}
		if n.Key == diff.Key && int64(reqInt) == n.Before && int64(recInt) == n.After {
			return n.Cause, true
		}
	}
	return "", false
}

func describeUnexplained(diff compare.Difference) string {
	req := "unset"
	if diff.Requested != nil {
		req = param.Format(diff.Requested)
	}
	rec := "unset"
	if diff.Recovered != nil {
		rec = param.Format(diff.Recovered)
	}
	if diff.Unknown {
		return fmt.Sprintf("%s requested=%s found=%s (no comparison rule; failing closed)", diff.Key, req, rec)
	}
	return fmt.Sprintf("%s requested=%s found=%s", diff.Key, req, rec)
}

// causeText renders a notice cause for rationale strings.
func causeText(c outcar.NoticeCause) string {
	switch c {
	case outcar.CauseParallelBandAdjustment:
		return "parallel band auto-adjustment"
	default:
		return strings.ToLower(string(c))
	}
}
