// Package config loads the orchestration-layer configuration: queue
// settings, the solver command and the ledger location.
//
// Configuration is read once at startup from a YAML file. The core
// packages (outcar, compare, decide) never see it; everything they need
// arrives as explicit arguments.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the per-user configuration file looked up when no
// explicit path is given.
const DefaultFileName = ".recalcrc"

// Config is the full orchestration configuration.
type Config struct {
	Queue  Queue  `yaml:"queue"`
	Solver Solver `yaml:"solver"`

	// LedgerPath locates the decision ledger database. Empty disables
	// ledger recording.
	LedgerPath string `yaml:"ledger_path"`
}

// Queue configures job submission.
type Queue struct {
	// Name is the queue/partition to submit to.
	Name string `yaml:"name"`

	// Nodes and PPN size the allocation.
	Nodes int `yaml:"nodes"`
	PPN   int `yaml:"ppn"`

	// Walltime is the queue walltime request, e.g. "24:00:00".
	Walltime string `yaml:"walltime"`

	// SubmitCommand is the submission binary, e.g. "qsub".
	SubmitCommand string `yaml:"submit_command"`

	// StatusCommand reports queue membership, e.g. "qstat".
	StatusCommand string `yaml:"status_command"`
}

// Solver configures the external compute command.
type Solver struct {
	// Command launches the solver inside the job script.
	Command string `yaml:"command"`

	// MPIRanks is the rank count for parallel runs; 0 means serial.
	MPIRanks int `yaml:"mpi_ranks"`
}

// Default returns the built-in defaults, used when no file exists.
func Default() Config {
	return Config{
		Queue: Queue{
			Name:          "batch",
			Nodes:         1,
			PPN:           1,
			Walltime:      "24:00:00",
			SubmitCommand: "qsub",
			StatusCommand: "qstat",
		},
		Solver: Solver{
			Command: "vasp_std",
		},
	}
}

// Load reads the configuration at path. A missing file yields the
// defaults; a present but malformed file is an error. Unknown fields are
// rejected so typos fail loudly.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var fileCfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	merge(&cfg, fileCfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns the per-user config path ($HOME/.recalcrc).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

// Validate checks internal consistency.
func (c Config) Validate() error {
	if c.Queue.Nodes < 1 {
		return fmt.Errorf("queue.nodes must be >= 1, got %d", c.Queue.Nodes)
	}
	if c.Queue.PPN < 1 {
		return fmt.Errorf("queue.ppn must be >= 1, got %d", c.Queue.PPN)
	}
	if c.Solver.MPIRanks < 0 {
		return fmt.Errorf("solver.mpi_ranks must be >= 0, got %d", c.Solver.MPIRanks)
	}
	if c.Solver.Command == "" {
		return fmt.Errorf("solver.command must not be empty")
	}
	return nil
}

// merge overlays non-zero file values onto the defaults.
func merge(dst *Config, src Config) {
	if src.Queue.Name != "" {
		dst.Queue.Name = src.Queue.Name
	}
	if src.Queue.Nodes != 0 {
		dst.Queue.Nodes = src.Queue.Nodes
	}
	if src.Queue.PPN != 0 {
		dst.Queue.PPN = src.Queue.PPN
	}
	if src.Queue.Walltime != "" {
		dst.Queue.Walltime = src.Queue.Walltime
	}
	if src.Queue.SubmitCommand != "" {
		dst.Queue.SubmitCommand = src.Queue.SubmitCommand
	}
	if src.Queue.StatusCommand != "" {
		dst.Queue.StatusCommand = src.Queue.StatusCommand
	}
	if src.Solver.Command != "" {
		dst.Solver.Command = src.Solver.Command
	}
	if src.Solver.MPIRanks != 0 {
		dst.Solver.MPIRanks = src.Solver.MPIRanks
	}
	if src.LedgerPath != "" {
		dst.LedgerPath = src.LedgerPath
	}
}
