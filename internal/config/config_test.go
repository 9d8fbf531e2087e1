package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "qsub", cfg.Queue.SubmitCommand)
	assert.Equal(t, "vasp_std", cfg.Solver.Command)
}

func TestLoad_OverlaysFileValues(t *testing.T) {
	path := writeConfig(t, `
queue:
  name: highmem
  nodes: 4
  ppn: 16
solver:
  command: vasp_gam
  mpi_ranks: 64
ledger_path: /var/lib/recalc/ledger.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "highmem", cfg.Queue.Name)
	assert.Equal(t, 4, cfg.Queue.Nodes)
	assert.Equal(t, 16, cfg.Queue.PPN)
	// Unset file values keep their defaults.
	assert.Equal(t, "24:00:00", cfg.Queue.Walltime)
	assert.Equal(t, "qsub", cfg.Queue.SubmitCommand)
	assert.Equal(t, "vasp_gam", cfg.Solver.Command)
	assert.Equal(t, 64, cfg.Solver.MPIRanks)
	assert.Equal(t, "/var/lib/recalc/ledger.db", cfg.LedgerPath)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "qeue:\n  name: batch\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "queue: [not a mapping\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults valid", func(c *Config) {}, ""},
		{"zero nodes", func(c *Config) { c.Queue.Nodes = 0 }, "queue.nodes"},
		{"zero ppn", func(c *Config) { c.Queue.PPN = 0 }, "queue.ppn"},
		{"negative ranks", func(c *Config) { c.Solver.MPIRanks = -1 }, "mpi_ranks"},
		{"empty command", func(c *Config) { c.Solver.Command = "" }, "solver.command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath()
	assert.Equal(t, DefaultFileName, filepath.Base(path))
}
