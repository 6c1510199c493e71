// Package app wires the catalogue, resolver, engine and generator together
// behind the two CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/cxfgo/blocks"
	"github.com/vk/cxfgo/internal/catalogue"
	"github.com/vk/cxfgo/internal/checkpoint"
	"github.com/vk/cxfgo/internal/ctxlog"
	"github.com/vk/cxfgo/internal/cxf"
	"github.com/vk/cxfgo/internal/engine"
	"github.com/vk/cxfgo/internal/resolver"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	cat    *catalogue.Registry
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and block catalogue.
func NewApp(outW io.Writer, config *Config, mods ...catalogue.Module) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	cat := blocks.Core()
	for _, mod := range mods {
		mod.Register(cat)
	}
	logger.Debug("Block catalogue assembled.", "types", len(cat.Types()))

	return &App{
		outW:   outW,
		logger: logger,
		config: config,
		cat:    cat,
	}
}

// Catalogue returns the application's block catalogue. This is primarily for
// testing.
func (a *App) Catalogue() *catalogue.Registry {
	return a.cat
}

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	var err error
	switch a.config.Command {
	case "translate":
		err = a.runTranslate(ctx)
	case "simulate":
		err = a.runSimulate(ctx)
	default:
		err = fmt.Errorf("unknown command %q", a.config.Command)
	}
	if err != nil {
		return err
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// resolve parses the root document and resolves every composite it depends on.
func (a *App) resolve(ctx context.Context) (*resolver.Resolution, error) {
	parser := cxf.NewParser(a.cat)
	res, err := resolver.New(parser, a.config.SearchPaths).Resolve(ctx, a.config.Input)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Model resolved.", "root", res.Root.Name, "networks", len(res.Order))
	return res, nil
}

// FailureCategory names the class of a run failure for terse CLI reporting.
func FailureCategory(err error) string {
	var (
		malformed  *cxf.MalformedDocumentError
		dangling   *cxf.DanglingConnectionError
		arity      *cxf.PortArityError
		unresolved *resolver.UnresolvedReferenceError
		circular   *resolver.CircularDependencyError
		step       *engine.StepEvaluationError
		mismatch   *checkpoint.MismatchError
	)
	switch {
	case errors.As(err, &malformed):
		return "malformed document"
	case errors.As(err, &dangling):
		return "dangling connection"
	case errors.As(err, &arity):
		return "port arity violation"
	case errors.As(err, &unresolved):
		return "unresolved reference"
	case errors.As(err, &circular):
		return "circular dependency"
	case errors.As(err, &step):
		return "step failure"
	case errors.As(err, &mismatch):
		return "checkpoint mismatch"
	default:
		return "error"
	}
}
