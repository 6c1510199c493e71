package runconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/clock"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
simulation {
  mode  = "logical"
  step  = 0.5
  start = 10
  steps = 20

  checkpoint {
    every = 5
    path  = "state.json"
  }
}

drive "u" {
  constant = 2.5
}

drive "enable" {
  values = [true, true, false]
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	sim := cfg.Simulation
	assert.Equal(t, "logical", sim.Mode)
	assert.Equal(t, 0.5, sim.Step)
	assert.Equal(t, 10.0, sim.Start)
	assert.Equal(t, 20, sim.Steps)
	require.NotNil(t, sim.Checkpoint)
	assert.Equal(t, 5, sim.Checkpoint.Every)
	assert.Equal(t, "state.json", sim.Checkpoint.Path)

	require.Len(t, cfg.Drives, 2)
	assert.Equal(t, "u", cfg.Drives[0].Port)
	assert.True(t, cfg.Drives[0].Constant.RawEquals(cty.NumberFloatVal(2.5)))
	assert.Len(t, cfg.Drives[1].Values, 3)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
simulation {
  steps = 1
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, string(clock.Logical), cfg.Simulation.Mode)
	assert.Equal(t, 1.0, cfg.Simulation.Step)
	assert.Zero(t, cfg.Simulation.Start)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			"bad HCL syntax",
			`simulation {`,
			"parsing",
		},
		{
			"unknown mode",
			"simulation {\n  mode = \"wall\"\n  steps = 1\n}",
			`unknown mode "wall"`,
		},
		{
			"negative step",
			"simulation {\n  step = -1\n  steps = 1\n}",
			"step must be positive",
		},
		{
			"negative steps",
			"simulation {\n  steps = -2\n}",
			"steps must not be negative",
		},
		{
			"checkpoint without path",
			"simulation {\n  steps = 1\n  checkpoint {\n    every = 2\n    path = \"\"\n  }\n}",
			"path must not be empty",
		},
		{
			"drive without values",
			"simulation {\n  steps = 1\n}\n\ndrive \"u\" {\n}",
			"needs either constant or values",
		},
		{
			"drive with both",
			"simulation {\n  steps = 1\n}\n\ndrive \"u\" {\n  constant = 1\n  values = [1, 2]\n}",
			"mutually exclusive",
		},
		{
			"duplicate drive",
			"simulation {\n  steps = 1\n}\n\ndrive \"u\" {\n  constant = 1\n}\n\ndrive \"u\" {\n  constant = 2\n}",
			"duplicate drive",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestDriveValueAt(t *testing.T) {
	t.Run("constant for every step", func(t *testing.T) {
		d := &Drive{Port: "u", Constant: cty.NumberIntVal(7)}
		for i := 0; i < 4; i++ {
			assert.True(t, d.ValueAt(i).RawEquals(cty.NumberIntVal(7)))
		}
	})

	t.Run("series with last value held", func(t *testing.T) {
		d := &Drive{Port: "u", Values: []cty.Value{
			cty.NumberIntVal(1), cty.NumberIntVal(2), cty.NumberIntVal(3),
		}}
		assert.True(t, d.ValueAt(0).RawEquals(cty.NumberIntVal(1)))
		assert.True(t, d.ValueAt(2).RawEquals(cty.NumberIntVal(3)))
		assert.True(t, d.ValueAt(10).RawEquals(cty.NumberIntVal(3)), "last value holds")
	})
}

func TestNewClock(t *testing.T) {
	sim := &Simulation{Mode: "paced", Step: 0.25, Start: 5}
	clk, err := sim.NewClock()
	require.NoError(t, err)
	assert.Equal(t, clock.Paced, clk.Mode())
	assert.Equal(t, 5.0, clk.Now())
	assert.Equal(t, 0.25, clk.Step())
}
