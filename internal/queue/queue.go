// Package queue is the job controller: it owns submission of solver jobs
// to the batch system and the jobid bookkeeping inside a calculation
// directory.
//
// The decision engine sees this package only through decide.Resubmitter.
// Timeout and retry semantics for the solver's execution live here, never
// in the decision path.
package queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/hartree/recalc/internal/calcdir"
	"github.com/hartree/recalc/internal/config"
	"github.com/hartree/recalc/internal/param"
)

// ScriptName is the submit script written into the calculation directory.
const ScriptName = "runjob.sh"

// AlreadyQueuedError reports a submission attempt for a directory that
// already has an outstanding job. Callers treat this as "nothing to do",
// not as a failure; it exists as a value so they can branch on it.
type AlreadyQueuedError struct {
	Dir   string
	JobID string
}

func (e *AlreadyQueuedError) Error() string {
	return fmt.Sprintf("job %s already queued for %s", e.JobID, e.Dir)
}

// IsAlreadyQueued reports whether err is (or wraps) an *AlreadyQueuedError.
func IsAlreadyQueued(err error) bool {
	var aq *AlreadyQueuedError
	return errors.As(err, &aq)
}

// Controller submits solver jobs through the configured batch system.
// Implements decide.Resubmitter.
type Controller struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewController creates a Controller from configuration.
func NewController(cfg config.Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{cfg: cfg, logger: logger}
}

// submitScriptTmpl renders a PBS-style submit script.
var submitScriptTmpl = template.Must(template.New("runjob").Parse(`#!/bin/bash
#PBS -q {{.Queue.Name}}
#PBS -l nodes={{.Queue.Nodes}}:ppn={{.Queue.PPN}}
#PBS -l walltime={{.Queue.Walltime}}
#PBS -j oe

cd "$PBS_O_WORKDIR"
touch running
{{if gt .Solver.MPIRanks 0}}mpirun -np {{.Solver.MPIRanks}} {{.Solver.Command}}{{else}}{{.Solver.Command}}{{end}}
rm -f running
`))

// Resubmit queues a new solver run in dir with the requested parameters.
//
// Steps: refuse if a job is already outstanding, rewrite INCAR from the
// request, render the submit script, invoke the submit command, and record
// the returned job id in the jobid file.
func (c *Controller) Resubmit(ctx context.Context, dir calcdir.Dir, requested param.Set) error {
	if dir.HasJobID() {
		jobID, err := dir.JobID()
		if err != nil {
			return err
		}
		queued, err := c.InQueue(ctx, jobID)
		if err != nil {
			return fmt.Errorf("query queue for job %s: %w", jobID, err)
		}
		if queued {
			return &AlreadyQueuedError{Dir: dir.Path(), JobID: jobID}
		}
		// Stale jobid from a dead job; clear it and submit fresh.
		if err := os.Remove(filepath.Join(dir.Path(), calcdir.JobIDName)); err != nil {
			return fmt.Errorf("clear stale jobid in %s: %w", dir.Path(), err)
		}
	}

	if err := WriteINCAR(dir, requested); err != nil {
		return err
	}

	scriptPath := filepath.Join(dir.Path(), ScriptName)
	var script bytes.Buffer
	if err := submitScriptTmpl.Execute(&script, c.cfg); err != nil {
		return fmt.Errorf("render submit script: %w", err)
	}
	if err := os.WriteFile(scriptPath, script.Bytes(), 0o755); err != nil {
		return fmt.Errorf("write submit script: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.cfg.Queue.SubmitCommand, ScriptName)
	cmd.Dir = dir.Path()
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("submit %s: %w", dir.Path(), err)
	}
	jobID := strings.TrimSpace(string(out))
	if jobID == "" {
		return fmt.Errorf("submit %s: %s returned no job id", dir.Path(), c.cfg.Queue.SubmitCommand)
	}

	if err := os.WriteFile(filepath.Join(dir.Path(), calcdir.JobIDName), []byte(jobID+"\n"), 0o644); err != nil {
		return fmt.Errorf("write jobid in %s: %w", dir.Path(), err)
	}

	c.logger.Info("job submitted", "dir", dir.Path(), "job_id", jobID, "queue", c.cfg.Queue.Name)
	return nil
}

// InQueue reports whether jobID is still known to the batch system.
// The status command exiting non-zero means the job is gone.
func (c *Controller) InQueue(ctx context.Context, jobID string) (bool, error) {
	if jobID == "" {
		return false, nil
	}
	cmd := exec.CommandContext(ctx, c.cfg.Queue.StatusCommand, jobID)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WriteINCAR renders the requested parameter set as an INCAR file in dir.
// Keys are written in sorted order so rewrites are byte-stable.
func WriteINCAR(dir calcdir.Dir, requested param.Set) error {
	var b strings.Builder
	for _, key := range requested.SortedKeys() {
		fmt.Fprintf(&b, "%s = %s\n", key, incarText(requested[key]))
	}
	if err := os.WriteFile(dir.IncarPath(), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write INCAR in %s: %w", dir.Path(), err)
	}
	return nil
}

// incarText renders a value in INCAR syntax. Vectors are space-separated;
// everything else matches param.Format.
func incarText(v param.Value) string {
	if vec, ok := v.(param.Vector); ok {
		parts := make([]string, len(vec))
		for i, elem := range vec {
			parts[i] = param.Format(elem)
		}
		return strings.Join(parts, " ")
	}
	return param.Format(v)
}
