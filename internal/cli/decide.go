package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hartree/recalc/internal/calcdir"
	"github.com/hartree/recalc/internal/decide"
	"github.com/hartree/recalc/internal/queue"
	"github.com/hartree/recalc/internal/schema"
)

// DecideOptions holds flags for the decide command.
type DecideOptions struct {
	ParamsPath string
	Submit     bool
}

// decideResult is the per-directory payload for json output.
type decideResult struct {
	Dir      string           `json:"dir"`
	Decision *decide.Decision `json:"decision,omitempty"`
	Queued   bool             `json:"queued,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// NewDecideCommand creates the decide command.
func NewDecideCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecideOptions{}

	cmd := &cobra.Command{
		Use:   "decide [flags] DIR...",
		Short: "Decide reuse vs. resubmit for calculation directories",
		Long: "Compares the requested parameters against each directory's stored\n" +
			"result and reports REUSE, WARN_AND_REUSE or RESUBMIT. Without\n" +
			"--params the directory's own INCAR is the request. With --submit,\n" +
			"RESUBMIT decisions are queued immediately.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecide(cmd, rootOpts, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.ParamsPath, "params", "", "YAML file of requested parameters")
	cmd.Flags().BoolVar(&opts.Submit, "submit", false, "queue a job on RESUBMIT decisions")

	return cmd
}

func runDecide(cmd *cobra.Command, rootOpts *RootOptions, opts *DecideOptions, dirs []string) error {
	env, err := setup(rootOpts)
	if err != nil {
		return err
	}
	defer env.Close()

	engine := env.newEngine(rootOpts, opts.Submit)
	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

	var results []decideResult
	failed := false
	for _, path := range dirs {
		if _, err := os.Stat(path); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("directory %s", path), err)
		}
		res := decideOne(cmd, engine, env, rootOpts, opts, path)
		if res.Error != "" {
			failed = true
		}
		results = append(results, res)
		if rootOpts.Format != "json" {
			printDecideText(formatter, res)
		}
	}

	if rootOpts.Format == "json" {
		if err := formatter.Success(results); err != nil {
			return err
		}
	}
	if failed {
		return &ExitError{Code: ExitFailure, Message: "one or more decisions failed"}
	}
	return nil
}

func decideOne(cmd *cobra.Command, engine *decide.Engine, env *environment, rootOpts *RootOptions, opts *DecideOptions, path string) decideResult {
	dir := calcdir.New(path)
	res := decideResult{Dir: path}

	requested, err := loadRequested(opts.ParamsPath, dir, env.reg)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if err := schema.Validate(env.reg, requested); err != nil {
		res.Error = err.Error()
		return res
	}

	d, err := engine.Decide(cmd.Context(), requested, dir)
	res.Decision = d
	switch {
	case err == nil:
		res.Queued = opts.Submit && d != nil && d.Outcome == decide.OutcomeResubmit
	case queue.IsAlreadyQueued(err):
		// An outstanding job is not a failure; the decision stands and the
		// queue will produce the result.
		res.Queued = false
	default:
		res.Error = err.Error()
	}
	return res
}

func printDecideText(f *OutputFormatter, res decideResult) {
	if res.Error != "" {
		f.Textf("%-40s ERROR: %s", truncateLeft(res.Dir, 40), res.Error)
		return
	}
	line := fmt.Sprintf("%-40s %s", truncateLeft(res.Dir, 40), res.Decision.Outcome)
	if res.Queued {
		line += " (submitted)"
	}
	f.Textf("%s", line)
	if res.Decision.Outcome != decide.OutcomeReuse {
		f.Textf("  %s", res.Decision.Rationale)
	}
}

// truncateLeft keeps the rightmost n characters of a path, the way job
// listings show deep directory trees.
func truncateLeft(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
