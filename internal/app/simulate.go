package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/cxfgo/internal/checkpoint"
	"github.com/vk/cxfgo/internal/engine"
	"github.com/vk/cxfgo/internal/model"
	"github.com/vk/cxfgo/internal/runconfig"
)

// runSimulate resolves the model, instantiates it and steps it under the run
// configuration, optionally writing a CSV trace and periodic checkpoints.
func (a *App) runSimulate(ctx context.Context) error {
	res, err := a.resolve(ctx)
	if err != nil {
		return err
	}

	cfg, err := runconfig.Load(a.config.RunConfig)
	if err != nil {
		return err
	}
	sim := cfg.Simulation

	if err := checkDrives(res.Root, cfg.Drives); err != nil {
		return err
	}

	clk, err := sim.NewClock()
	if err != nil {
		return err
	}

	eng, err := engine.New(res.Root, a.cat, clk, engine.Options{})
	if err != nil {
		return err
	}

	if sim.Restore != "" {
		doc, err := checkpoint.ReadFile(sim.Restore)
		if err != nil {
			return err
		}
		if err := checkpoint.Restore(eng, doc); err != nil {
			return err
		}
		a.logger.Info("Restored checkpoint.", "path", sim.Restore, "snapshot", doc.SnapshotID, "instant", clk.Now())
	}

	var trace *csv.Writer
	if a.config.TracePath != "" {
		f, err := os.Create(a.config.TracePath)
		if err != nil {
			return fmt.Errorf("creating trace file: %w", err)
		}
		defer f.Close()
		trace = csv.NewWriter(f)
		defer trace.Flush()

		header := []string{"time"}
		for _, p := range res.Root.Outputs {
			header = append(header, p.Name)
		}
		if err := trace.Write(header); err != nil {
			return fmt.Errorf("writing trace header: %w", err)
		}
	}

	a.logger.Info("Simulation starting.", "model", res.Root.Name, "mode", sim.Mode, "step", clk.Step(), "steps", sim.Steps)

	for i := 1; i <= sim.Steps; i++ {
		clk.Advance()

		inputs, err := driveInputs(res.Root, cfg.Drives, i-1)
		if err != nil {
			return err
		}

		out, err := eng.Step(ctx, inputs)
		if err != nil {
			return err
		}
		a.logger.Debug("Step complete.", "step", i, "instant", clk.Now())

		if trace != nil {
			row := []string{formatCell(cty.NumberFloatVal(clk.Now()))}
			for _, p := range res.Root.Outputs {
				row = append(row, formatCell(out[p.Name]))
			}
			if err := trace.Write(row); err != nil {
				return fmt.Errorf("writing trace row: %w", err)
			}
		}

		if sim.Checkpoint != nil && sim.Checkpoint.Every > 0 && i%sim.Checkpoint.Every == 0 {
			if err := a.writeCheckpoint(eng, sim.Checkpoint.Path, i); err != nil {
				return err
			}
		}
	}

	if sim.Checkpoint != nil && (sim.Checkpoint.Every == 0 || sim.Steps%sim.Checkpoint.Every != 0) {
		if err := a.writeCheckpoint(eng, sim.Checkpoint.Path, sim.Steps); err != nil {
			return err
		}
	}

	a.logger.Info("Simulation finished.", "steps", sim.Steps, "instant", clk.Now())
	return nil
}

func (a *App) writeCheckpoint(eng *engine.Engine, path string, step int) error {
	doc, err := checkpoint.Capture(eng)
	if err != nil {
		return err
	}
	if err := checkpoint.WriteFile(path, doc); err != nil {
		return err
	}
	a.logger.Debug("Checkpoint written.", "path", path, "step", step, "snapshot", doc.SnapshotID)
	return nil
}

// checkDrives verifies every drive names a model input and every model input
// has a drive.
func checkDrives(net *model.Network, drives []*runconfig.Drive) error {
	driven := make(map[string]bool, len(drives))
	for _, d := range drives {
		if net.InputPort(d.Port) == nil {
			return fmt.Errorf("drive %q: model %q has no such input", d.Port, net.Name)
		}
		driven[d.Port] = true
	}
	for _, p := range net.Inputs {
		if !driven[p.Name] {
			return fmt.Errorf("model input %q has no drive", p.Name)
		}
	}
	return nil
}

// driveInputs assembles the input values for one step, converting each drive
// value to the declared type of its port.
func driveInputs(net *model.Network, drives []*runconfig.Drive, i int) (map[string]cty.Value, error) {
	inputs := make(map[string]cty.Value, len(drives))
	for _, d := range drives {
		port := net.InputPort(d.Port)
		want, err := port.Type.CtyType()
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", d.Port, err)
		}
		v := d.ValueAt(i)
		conv, err := coerce(v, want)
		if err != nil {
			return nil, fmt.Errorf("drive %q step %d: %w", d.Port, i+1, err)
		}
		inputs[d.Port] = conv
	}
	return inputs, nil
}

// coerce converts a drive value to the port's type, additionally accepting
// numbers for boolean ports with nonzero meaning true.
func coerce(v cty.Value, want cty.Type) (cty.Value, error) {
	if conv, err := convert.Convert(v, want); err == nil {
		return conv, nil
	}
	if want == cty.Bool && v.Type() == cty.Number {
		f, _ := v.AsBigFloat().Float64()
		return cty.BoolVal(f != 0), nil
	}
	return cty.NilVal, fmt.Errorf("cannot convert %s to %s", v.Type().FriendlyName(), want.FriendlyName())
}

func formatCell(v cty.Value) string {
	if v == cty.NilVal || v.IsNull() {
		return ""
	}
	switch v.Type() {
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case cty.Bool:
		return strconv.FormatBool(v.True())
	default:
		return v.GoString()
	}
}
