package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hartree/recalc/internal/calcdir"
	"github.com/hartree/recalc/internal/config"
	"github.com/hartree/recalc/internal/decide"
	"github.com/hartree/recalc/internal/param"
	"github.com/hartree/recalc/internal/queue"
	"github.com/hartree/recalc/internal/schema"
	"github.com/hartree/recalc/internal/store"
)

// environment bundles everything a command needs to build a decision
// engine. Close releases the ledger if one was opened.
type environment struct {
	cfg    config.Config
	reg    param.Registry
	ledger *store.Ledger
}

func (e *environment) Close() {
	if e.ledger != nil {
		e.ledger.Close()
	}
}

// setup loads configuration, compiles the parameter schema and opens the
// ledger when one is configured.
func setup(opts *RootOptions) (*environment, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading configuration", err)
	}

	reg, err := schema.Default()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "compiling parameter schema", err)
	}

	env := &environment{cfg: cfg, reg: reg}
	if cfg.LedgerPath != "" {
		ledger, err := store.Open(cfg.LedgerPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "opening decision ledger", err)
		}
		env.ledger = ledger
	}
	return env, nil
}

// newEngine assembles a decision engine from the environment. submit
// controls whether a RESUBMIT outcome actually queues a job.
func (e *environment) newEngine(opts *RootOptions, submit bool) *decide.Engine {
	logger := newLogger(opts)
	engineOpts := []decide.Option{decide.WithLogger(logger)}
	if e.ledger != nil {
		engineOpts = append(engineOpts, decide.WithRecorder(e.ledger))
	}
	if submit {
		engineOpts = append(engineOpts, decide.WithResubmitter(queue.NewController(e.cfg, logger)))
	}
	return decide.New(e.reg, engineOpts...)
}

// loadRequested reads a requested parameter set. With a params file the
// set comes from YAML; otherwise the directory's own INCAR is the request,
// which makes a bare decide/scan mean "is this directory's stored result
// good for what it asked for".
//
// In the INCAR path, tags outside the comparison catalogue (SYSTEM,
// ISTART, LREAL, ...) are dropped: the INCAR is trusted provenance, not an
// orchestration request, and a title tag must not fail closed and force a
// rerun of a correct result. Explicit params files keep the fail-closed
// behavior for unknown keys.
func loadRequested(paramsPath string, dir calcdir.Dir, reg param.Registry) (param.Set, error) {
	if paramsPath == "" {
		incar, err := dir.ReadINCAR()
		if err != nil {
			return nil, fmt.Errorf("reading INCAR as request: %w", err)
		}
		set := make(param.Set, len(incar))
		for key, v := range incar {
			if _, known := reg.Lookup(key); known {
				set[key] = v
			}
		}
		return set, nil
	}

	data, err := os.ReadFile(paramsPath)
	if err != nil {
		return nil, fmt.Errorf("reading params file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing params file %s: %w", paramsPath, err)
	}
	set, err := param.NewSet(raw)
	if err != nil {
		return nil, fmt.Errorf("params file %s: %w", paramsPath, err)
	}
	return set, nil
}
