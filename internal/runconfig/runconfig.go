// Package runconfig loads the HCL file describing a simulation run: the
// execution mode and step, how many steps to run, where to checkpoint, and
// the values driving the model's input ports.
package runconfig

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"

	"github.com/vk/cxfgo/internal/clock"
)

// Config is the decoded run configuration.
type Config struct {
	Simulation *Simulation `hcl:"simulation,block"`
	Drives     []*Drive    `hcl:"drive,block"`
}

// Simulation controls the time source and run length.
type Simulation struct {
	Mode  string  `hcl:"mode,optional"`
	Step  float64 `hcl:"step,optional"`
	Start float64 `hcl:"start,optional"`
	Steps int     `hcl:"steps"`

	// Restore resumes a run from a previously written checkpoint.
	Restore string `hcl:"restore,optional"`

	Checkpoint *Checkpoint `hcl:"checkpoint,block"`
}

// Checkpoint requests a state snapshot every N steps.
type Checkpoint struct {
	Every int    `hcl:"every,optional"`
	Path  string `hcl:"path"`
}

// Drive supplies values for one model input port: either a constant for the
// whole run or an explicit per-step series. When the series is shorter than
// the run, the last value holds.
type Drive struct {
	Port     string      `hcl:"port,label"`
	Constant cty.Value   `hcl:"constant,optional"`
	Values   []cty.Value `hcl:"values,optional"`
}

// ValueAt returns the drive's value for step i.
func (d *Drive) ValueAt(i int) cty.Value {
	if len(d.Values) > 0 {
		if i >= len(d.Values) {
			i = len(d.Values) - 1
		}
		return d.Values[i]
	}
	return d.Constant
}

// Load parses and validates a run configuration file.
func Load(path string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", path, diags)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Simulation == nil {
		cfg.Simulation = &Simulation{}
	}
	if cfg.Simulation.Mode == "" {
		cfg.Simulation.Mode = string(clock.Logical)
	}
	if cfg.Simulation.Step == 0 {
		cfg.Simulation.Step = 1
	}
}

func validate(cfg *Config) error {
	var errs error
	sim := cfg.Simulation

	switch clock.Mode(sim.Mode) {
	case clock.Logical, clock.Paced:
	default:
		errs = multierr.Append(errs, fmt.Errorf("simulation: unknown mode %q", sim.Mode))
	}
	if sim.Step <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("simulation: step must be positive, got %g", sim.Step))
	}
	if sim.Steps < 0 {
		errs = multierr.Append(errs, fmt.Errorf("simulation: steps must not be negative, got %d", sim.Steps))
	}
	if sim.Checkpoint != nil {
		if sim.Checkpoint.Every < 0 {
			errs = multierr.Append(errs, fmt.Errorf("checkpoint: every must not be negative, got %d", sim.Checkpoint.Every))
		}
		if sim.Checkpoint.Path == "" {
			errs = multierr.Append(errs, fmt.Errorf("checkpoint: path must not be empty"))
		}
	}

	seen := make(map[string]bool, len(cfg.Drives))
	for _, d := range cfg.Drives {
		if seen[d.Port] {
			errs = multierr.Append(errs, fmt.Errorf("drive %q: duplicate drive for port", d.Port))
			continue
		}
		seen[d.Port] = true

		hasConstant := d.Constant != cty.NilVal && !d.Constant.IsNull()
		if hasConstant && len(d.Values) > 0 {
			errs = multierr.Append(errs, fmt.Errorf("drive %q: constant and values are mutually exclusive", d.Port))
		}
		if !hasConstant && len(d.Values) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("drive %q: needs either constant or values", d.Port))
		}
	}
	return errs
}

// NewClock builds the time source the configuration asks for.
func (s *Simulation) NewClock() (*clock.Clock, error) {
	return clock.New(clock.Mode(s.Mode), s.Start, s.Step)
}
