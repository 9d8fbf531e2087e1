// Package testutil provides fixture builders for tests: synthetic solver
// output logs and populated calculation directories.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// BandNotice describes a band-adjustment banner to embed in a fixture log.
type BandNotice struct {
	Before int64
	After  int64

	// Malformed, when set, renders the banner with a garbled numeric pair
	// so parsers can be tested against the malformed-diagnostic case.
	Malformed bool
}

// OutcarSpec describes a synthetic output log.
type OutcarSpec struct {
	// Params are echoed into the log as "KEY = value" summary lines.
	// Rendered in sorted key order for stable fixtures.
	Params map[string]string

	// Notice, when non-nil, embeds the parallel band-adjustment banner.
	Notice *BandNotice

	// Incomplete omits the terminal timing block, simulating a run that
	// is still going or was killed.
	Incomplete bool
}

// BuildOutcar renders an output log in the solver's fixed text format.
func BuildOutcar(spec OutcarSpec) string {
	var b strings.Builder

	b.WriteString(" vasp.5.4.4 complex\n")
	b.WriteString(" executed on             LinuxIFC\n")
	b.WriteString("\n")

	if spec.Notice != nil {
		b.WriteString(" -----------------------------------------------------------------------------\n")
		b.WriteString("|                                                                             |\n")
		b.WriteString("|     The number of bands has been changed from the values supplied in        |\n")
		b.WriteString("|     the INCAR file. This is a result of running the parallel version.       |\n")
		b.WriteString("|     The orbitals not found in the WAVECAR file will be initialized with     |\n")
		b.WriteString("|     random numbers, which is usually adequate.                              |\n")
		if spec.Notice.Malformed {
			b.WriteString("|      I found NBANDS    =      ***  now  NBANDS  =      ***                  |\n")
		} else {
			fmt.Fprintf(&b, "|      I found NBANDS    =      %3d  now  NBANDS  =      %3d                  |\n",
				spec.Notice.Before, spec.Notice.After)
		}
		b.WriteString(" -----------------------------------------------------------------------------\n")
		b.WriteString("\n")
	}

	b.WriteString(" Dimension of arrays:\n")
	for _, key := range sortedKeys(spec.Params) {
		fmt.Fprintf(&b, "   %s = %s\n", key, spec.Params[key])
	}
	b.WriteString("\n")
	b.WriteString(" First call to EWALD:  gamma=   0.1458\n")
	b.WriteString(" FREE ENERGIE OF THE ION-ELECTRON SYSTEM (eV)\n")

	if !spec.Incomplete {
		b.WriteString("\n")
		b.WriteString(" General timing and accounting informations for this job:\n")
		b.WriteString(" ========================================================\n")
		b.WriteString("          Total CPU time used (sec):      812.438\n")
		b.WriteString("                  Voluntary context switches:        2534\n")
	}

	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CalcDirSpec describes a populated calculation directory fixture.
type CalcDirSpec struct {
	// INCAR is the raw INCAR content; empty means no INCAR file.
	INCAR string

	// Outcar, when non-nil, writes an OUTCAR built from the spec.
	Outcar *OutcarSpec

	// RawOutcar, when non-empty, is written verbatim instead of Outcar.
	RawOutcar string

	// WithInputs writes the POSCAR/KPOINTS/POTCAR stubs that make the
	// directory recognizable to calcdir.IsCalcDir.
	WithInputs bool
}

// WriteCalcDir materializes the fixture under a fresh temp directory and
// returns its path.
func WriteCalcDir(t *testing.T, spec CalcDirSpec) string {
	t.Helper()
	dir := t.TempDir()

	if spec.INCAR != "" {
		writeFile(t, filepath.Join(dir, "INCAR"), spec.INCAR)
	}
	if spec.WithInputs {
		writeFile(t, filepath.Join(dir, "POSCAR"), "fcc Cu\n")
		writeFile(t, filepath.Join(dir, "KPOINTS"), "Automatic mesh\n")
		writeFile(t, filepath.Join(dir, "POTCAR"), "PAW_PBE Cu\n")
	}
	if spec.RawOutcar != "" {
		writeFile(t, filepath.Join(dir, "OUTCAR"), spec.RawOutcar)
	} else if spec.Outcar != nil {
		writeFile(t, filepath.Join(dir, "OUTCAR"), BuildOutcar(*spec.Outcar))
	}

	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}
