// Package cli parses the command line into an application configuration.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/cxfgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

const usageText = `
cxfgo - translate and run CXF control network documents.

Usage:
  cxfgo translate <model.jsonld> -o <dir> [options]
  cxfgo simulate  <model.jsonld> -config <run.hcl> [options]

Commands:
  translate
    Resolve a model document and emit deterministic Go source for it.
  simulate
    Resolve a model document and step it under a run configuration.

Options:
`

// Parse processes command-line arguments. It returns a populated app config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	if len(args) == 0 {
		fmt.Fprint(output, usageText)
		return nil, true, nil
	}

	command := args[0]
	switch command {
	case "translate", "simulate":
	case "-h", "--help", "help":
		fmt.Fprint(output, usageText)
		return nil, true, nil
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q, want 'translate' or 'simulate'", command)}
	}

	flagSet := flag.NewFlagSet("cxfgo "+command, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usageText)
		flagSet.PrintDefaults()
	}

	var searchPaths multiFlag
	flagSet.Var(&searchPaths, "search-path", "Additional directory to search for composite documents. Repeatable.")

	outDirFlag := flagSet.String("o", "", "Output directory for generated source (translate).")
	pkgFlag := flagSet.String("pkg", "ctrl", "Package name for generated source (translate).")
	runConfigFlag := flagSet.String("config", "", "Path to the HCL run configuration (simulate).")
	traceFlag := flagSet.String("out", "", "Path for the CSV output trace (simulate). Empty disables the trace.")
	verboseFlag := flagSet.Bool("v", false, "Enable debug logging (shorthand for -log-level debug).")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	input := flagSet.Arg(0)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if *verboseFlag {
		logLevel = "debug"
	}

	config, err := app.NewConfig(app.Config{
		Command:     command,
		Input:       input,
		OutDir:      *outDirFlag,
		Package:     *pkgFlag,
		SearchPaths: searchPaths,
		RunConfig:   *runConfigFlag,
		TracePath:   *traceFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "command", command, "input", input)
	return config, false, nil
}
