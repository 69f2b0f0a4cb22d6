package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/specialistvlad/pipegen/internal/app"
	"github.com/specialistvlad/pipegen/internal/stage"
)

// CommandGenStandalone is the only subcommand.
const CommandGenStandalone = "gen-standalone"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func printUsage(output io.Writer) {
	fmt.Fprint(output, `
pipegen - Generates a standalone script that mimics a compiled pipeline.

Usage:
  pipegen gen-standalone [options] [CONFIG_PATH...]

Arguments:
  CONFIG_PATH
    Path to a .hcl file or a directory of .hcl files declaring the executors
    of interest. Without one the built-in executor table is used.

`)
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	if len(args) == 0 {
		printUsage(output)
		return nil, true, nil
	}
	switch args[0] {
	case "-h", "-help", "--help", "help":
		printUsage(output)
		return nil, true, nil
	case CommandGenStandalone:
	default:
		return nil, false, usageError("unknown command %q, expected %q", args[0], CommandGenStandalone)
	}

	flagSet := flag.NewFlagSet("pipegen "+CommandGenStandalone, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		printUsage(output)
		fmt.Fprintln(output, "Options:")
		flagSet.PrintDefaults()
	}

	var configPaths, mocks stringList
	flagSet.Var(&configPaths, "config", "Path to a .hcl file or directory (repeatable).")
	manifestFlag := flagSet.String("manifest", "", fmt.Sprintf("Compiled pipeline manifest. Default %q.", app.Defaults.ManifestPath))
	templateFlag := flagSet.String("template", "", fmt.Sprintf("Script template. Default %q.", app.Defaults.TemplatePath))
	outputFlag := flagSet.String("output", "", fmt.Sprintf("Output script, overwritten. Default %q.", app.Defaults.OutputPath))
	quotingFlag := flagSet.String("quoting", "", "Sequence quoting: 'python' or 'shell'. Default 'python'.")
	styleFlag := flagSet.String("style", "", "Command style: 'arguments' or 'function'. Default 'arguments'.")
	flagSet.Var(&mocks, "mock", fmt.Sprintf("Mock a pipeline stage (repeatable). Options: %v.", stage.All()))
	compileFlag := flagSet.String("compile-command", "", "Shell-quoted command that compiles the manifest; overrides the configured one.")
	skipCompileFlag := flagSet.Bool("skip-compile", false, "Use the existing manifest without compiling.")
	logFormatFlag := flagSet.String("log-format", app.Defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", app.Defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	configPaths = append(configPaths, flagSet.Args()...)

	var compileCommand []string
	if *compileFlag != "" {
		words, err := shellquote.Split(*compileFlag)
		if err != nil {
			return nil, false, usageError("invalid compile-command: %s", err)
		}
		if len(words) == 0 {
			return nil, false, usageError("invalid compile-command: no program given")
		}
		compileCommand = words
	}

	config, err := app.NewConfig(app.Config{
		ConfigPaths:    configPaths,
		ManifestPath:   *manifestFlag,
		TemplatePath:   *templateFlag,
		OutputPath:     *outputFlag,
		Quoting:        strings.ToLower(*quotingFlag),
		Style:          strings.ToLower(*styleFlag),
		Mock:           mocks,
		CompileCommand: compileCommand,
		SkipCompile:    *skipCompileFlag,
		LogFormat:      strings.ToLower(*logFormatFlag),
		LogLevel:       strings.ToLower(*logLevelFlag),
	})
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
