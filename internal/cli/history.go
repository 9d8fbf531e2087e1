package cli

import (
	"github.com/spf13/cobra"

	"github.com/hartree/recalc/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	Dir     string
	Outcome string
	Limit   int
}

// NewHistoryCommand creates the history command, listing the decision
// ledger. The ledger is audit output only; nothing here feeds back into
// decisions.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [flags]",
		Short: "List recorded decisions from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "filter by calculation directory")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "filter by outcome (REUSE|RESUBMIT|WARN_AND_REUSE)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum rows to list (0 = all)")

	return cmd
}

func runHistory(cmd *cobra.Command, rootOpts *RootOptions, opts *HistoryOptions) error {
	env, err := setup(rootOpts)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.ledger == nil {
		return &ExitError{Code: ExitCommandError, Message: "no ledger configured (set ledger_path in the config file)"}
	}

	records, err := env.ledger.History(cmd.Context(), store.Filter{
		Dir:     opts.Dir,
		Outcome: opts.Outcome,
		Limit:   opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "querying ledger", err)
	}

	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
	if rootOpts.Format == "json" {
		return formatter.Success(records)
	}

	for _, rec := range records {
		formatter.Textf("%6d  %-14s %-40s %s", rec.Seq, rec.Outcome, truncateLeft(rec.Dir, 40), rec.Rationale)
	}
	formatter.Textf("%d decision(s)", len(records))
	return nil
}
