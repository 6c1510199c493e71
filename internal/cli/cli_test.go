package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTranslate(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"translate", "-o", "gen", "-pkg", "plant",
		"-search-path", "lib", "-search-path", "vendor",
		"-v", "model.jsonld",
	}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "translate", cfg.Command)
	assert.Equal(t, "model.jsonld", cfg.Input)
	assert.Equal(t, "gen", cfg.OutDir)
	assert.Equal(t, "plant", cfg.Package)
	assert.Equal(t, []string{"lib", "vendor"}, cfg.SearchPaths)
	assert.Equal(t, "debug", cfg.LogLevel, "-v forces debug")
}

func TestParseSimulate(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"simulate", "-config", "run.hcl", "-out", "trace.csv", "model.jsonld",
	}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "simulate", cfg.Command)
	assert.Equal(t, "model.jsonld", cfg.Input)
	assert.Equal(t, "run.hcl", cfg.RunConfig)
	assert.Equal(t, "trace.csv", cfg.TracePath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseErrors(t *testing.T) {
	t.Run("unknown command", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"frobnicate"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
		assert.Contains(t, exitErr.Message, "unknown command")
	})

	t.Run("translate without output dir", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"translate", "model.jsonld"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Contains(t, exitErr.Message, "requires -o")
	})

	t.Run("simulate without run config", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"simulate", "model.jsonld"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Contains(t, exitErr.Message, "requires -config")
	})

	t.Run("invalid log level", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"simulate", "-config", "r.hcl", "-log-level", "loud", "m.jsonld"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Contains(t, exitErr.Message, "invalid log-level")
	})

	t.Run("invalid log format", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"translate", "-o", "gen", "-log-format", "xml", "m.jsonld"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Contains(t, exitErr.Message, "invalid log-format")
	})
}

func TestParseCleanExits(t *testing.T) {
	t.Run("no arguments prints usage", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse(nil, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("help command", func(t *testing.T) {
		var out bytes.Buffer
		_, exit, err := Parse([]string{"help"}, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Contains(t, out.String(), "translate")
	})

	t.Run("command without input prints usage", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{"translate", "-o", "gen"}, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
	})
}
