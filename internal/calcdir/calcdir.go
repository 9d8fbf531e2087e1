// Package calcdir models one calculation's on-disk result store: the
// directory the solver ran in, holding its input and output artifacts.
//
// The directory is externally owned. This package only reads; the queue
// layer is solely responsible for writes and for ensuring no two
// submissions share a directory.
package calcdir

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hartree/recalc/internal/param"
)

// Well-known file names inside a calculation directory.
const (
	IncarName   = "INCAR"   // as-written input parameters
	OutcarName  = "OUTCAR"  // solver output log
	PoscarName  = "POSCAR"  // atomic configuration
	KpointsName = "KPOINTS" // k-point mesh
	PotcarName  = "POTCAR"  // pseudopotentials
	JobIDName   = "jobid"   // queue job id, present while submitted
	RunningName = "running" // marker while the job executes
)

// Dir is a handle on one calculation directory.
type Dir struct {
	path string
}

// New returns a handle on the calculation directory at path.
func New(path string) Dir {
	return Dir{path: path}
}

// Path returns the directory path.
func (d Dir) Path() string { return d.path }

// OutcarPath returns the path of the output log.
func (d Dir) OutcarPath() string { return filepath.Join(d.path, OutcarName) }

// IncarPath returns the path of the input parameter file.
func (d Dir) IncarPath() string { return filepath.Join(d.path, IncarName) }

// HasOutput reports whether an output log exists.
func (d Dir) HasOutput() bool {
	return fileExists(d.OutcarPath())
}

// HasJobID reports whether a queue job id file is present, meaning a
// submission is outstanding.
func (d Dir) HasJobID() bool {
	return fileExists(filepath.Join(d.path, JobIDName))
}

// IsRunning reports whether the running marker is present.
func (d Dir) IsRunning() bool {
	return fileExists(filepath.Join(d.path, RunningName))
}

// JobID returns the queued job's id, or "" if none is recorded.
func (d Dir) JobID() (string, error) {
	data, err := os.ReadFile(filepath.Join(d.path, JobIDName))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read jobid in %s: %w", d.path, err)
	}
	// Queue systems report ids like "12345.sched0"; the bare number is the id.
	id := strings.TrimSpace(string(data))
	if i := strings.IndexByte(id, '.'); i > 0 {
		id = id[:i]
	}
	return id, nil
}

// IsCalcDir reports whether path looks like a calculation directory: the
// solver input files are present. Used when walking a tree to find
// directories worth deciding on.
func IsCalcDir(path string) bool {
	for _, name := range []string{IncarName, KpointsName, PotcarName} {
		if !fileExists(filepath.Join(path, name)) {
			return false
		}
	}
	// POSCAR is absent in chained-image setups; INCAR/KPOINTS/POTCAR are
	// enough to identify the directory.
	return true
}

// ReadINCAR parses the as-written input parameters. Lines have the shape
// "KEY = value"; '#' and '!' start comments; multiple assignments may share
// a line separated by ';'. Returns an empty set if the file is absent.
func (d Dir) ReadINCAR() (param.Set, error) {
	f, err := os.Open(d.IncarPath())
	if os.IsNotExist(err) {
		return param.Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open INCAR in %s: %w", d.path, err)
	}
	defer f.Close()

	set := make(param.Set)
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexAny(line, "#!"); i >= 0 {
			line = line[:i]
		}
		for _, stmt := range strings.Split(line, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			key, raw, found := strings.Cut(stmt, "=")
			if !found {
				return nil, fmt.Errorf("INCAR %s:%d: no assignment in %q", d.path, lineNo, stmt)
			}
			k := strings.ToUpper(strings.TrimSpace(key))
			v, err := parseIncarValue(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("INCAR %s:%d: parameter %s: %w", d.path, lineNo, k, err)
			}
			set[k] = v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read INCAR in %s: %w", d.path, err)
	}
	return set, nil
}

// parseIncarValue types a raw INCAR token sequence. Single tokens become
// Int, Float, Bool or String by shape; multiple tokens become a Vector.
func parseIncarValue(raw string) (param.Value, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty value")
	}
	fields := strings.Fields(raw)
	if len(fields) == 1 {
		return parseIncarToken(fields[0]), nil
	}
	vec := make(param.Vector, len(fields))
	for i, tok := range fields {
		vec[i] = parseIncarToken(tok)
	}
	return vec, nil
}

func parseIncarToken(tok string) param.Value {
	switch strings.ToUpper(tok) {
	case ".TRUE.", "T", ".T.":
		return param.Bool(true)
	case ".FALSE.", "F", ".F.":
		return param.Bool(false)
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return param.Int(n)
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return param.Float(f)
	}
	return param.String(tok)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
