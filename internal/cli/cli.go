package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/starpipe/internal/app"
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

// Parse processes command-line arguments. It returns a populated
// app.Config, a boolean indicating if the program should exit cleanly, or
// an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("starpipe", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
starpipe - provenance tracker for a multi-stage processing pipeline.

Usage:
  starpipe [options] COMMAND

Commands:
  status    Print every process with its status and edge counts.
  check     Run one completion pass and persist any finished processes.
  watch     Keep checking completion on filesystem changes and a timer.
  gc        Rewrite the pipeline file without cancelled processes.
  markers   Refresh the node marker mirror directory.
  delete    Remove a process (see -job, -cascade).

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "starpipe.hcl", "Path to the HCL configuration file.")
	pipelineFlag := flagSet.String("pipeline", "", "Pipeline file, overriding the configured one.")
	jobFlag := flagSet.String("job", "", "Process name for the delete command.")
	cascadeFlag := flagSet.Bool("cascade", false, "Delete dependent processes recursively.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: "expected exactly one command"}
	}
	command := strings.ToLower(flagSet.Arg(0))

	logFormat := strings.ToLower(*logFormatFlag)
	switch logFormat {
	case "", "text", "json":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		Command:      command,
		ConfigPath:   *configFlag,
		PipelineFile: *pipelineFlag,
		JobName:      *jobFlag,
		Cascade:      *cascadeFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
