package cli

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hartree/recalc/internal/calcdir"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	Submit bool
}

// NewScanCommand creates the scan command. It walks a tree, identifies
// calculation directories by their input files, and decides each one
// against its own INCAR — resubmitting unfinished or missing runs when
// --submit is set.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{}

	cmd := &cobra.Command{
		Use:   "scan [flags] ROOT...",
		Short: "Recursively decide every calculation directory under ROOT",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, rootOpts, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Submit, "submit", false, "queue jobs on RESUBMIT decisions")

	return cmd
}

func runScan(cmd *cobra.Command, rootOpts *RootOptions, opts *ScanOptions, roots []string) error {
	env, err := setup(rootOpts)
	if err != nil {
		return err
	}
	defer env.Close()

	engine := env.newEngine(rootOpts, opts.Submit)
	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
	decideOpts := &DecideOptions{Submit: opts.Submit}

	var results []decideResult
	failed := false
	for _, root := range roots {
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() || !calcdir.IsCalcDir(path) {
				return nil
			}
			res := decideOne(cmd, engine, env, rootOpts, decideOpts, path)
			if res.Error != "" {
				failed = true
			}
			results = append(results, res)
			if rootOpts.Format != "json" {
				printDecideText(formatter, res)
			}
			return nil
		})
		if walkErr != nil {
			return WrapExitError(ExitCommandError, "walking "+root, walkErr)
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
