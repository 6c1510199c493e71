package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Command selects the operation: "translate" or "simulate".
	Command string
	// Input is the path to the root model document.
	Input string

	// Translate options.
	OutDir  string
	Package string

	// Simulate options.
	RunConfig string
	TracePath string

	SearchPaths []string

	LogFormat string
	LogLevel  string
}

// NewConfig validates a configuration and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Input == "" {
		return nil, errors.New("a model document path is required")
	}
	switch cfg.Command {
	case "translate":
		if cfg.OutDir == "" {
			return nil, errors.New("translate requires -o <dir>")
		}
		if cfg.Package == "" {
			return nil, errors.New("translate requires a non-empty -pkg")
		}
	case "simulate":
		if cfg.RunConfig == "" {
			return nil, errors.New("simulate requires -config <run.hcl>")
		}
	default:
		return nil, errors.New("command must be 'translate' or 'simulate'")
	}
	return &cfg, nil
}
