package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/pipegen/internal/render"
	"github.com/specialistvlad/pipegen/internal/stage"
)

// Output styles.
const (
	// StyleArguments keeps component source in commands as-is.
	StyleArguments = "arguments"
	// StyleFunction strips framework imports, type annotations and artifact
	// ".path" accessors from commands so the source runs as plain functions.
	StyleFunction = "function"
)

// Config holds all the necessary configuration for an App instance to run.
// Empty fields are taken from the generator configuration, then Defaults.
type Config struct {
	// ConfigPaths are .hcl files or directories. Empty uses the built-in
	// executor table.
	ConfigPaths []string

	ManifestPath string
	TemplatePath string
	OutputPath   string
	Quoting      string
	Style        string

	// Mock lists the stages compiled in mocked mode.
	Mock []string
	// CompileCommand overrides the configured compile command.
	CompileCommand []string
	// SkipCompile uses an existing manifest without compiling.
	SkipCompile bool

	LogFormat string
	LogLevel  string
}

// Defaults are the values used when neither flags nor the generator
// configuration set a field.
var Defaults = Config{
	// ManifestPath is the compiled multi-document pipeline manifest.
	ManifestPath: "pipeline.yaml",
	// TemplatePath is the script template rendered with the executor slots.
	TemplatePath: "standalone.tpl",
	// OutputPath is overwritten with the rendered script.
	OutputPath: "standalone.py",
	// Quoting "python" renders commands and args as Python list literals.
	Quoting: string(render.QuotingPython),
	// Style "arguments" leaves command text untouched.
	Style: StyleArguments,
	// LogFormat "text" writes human-readable logs to stderr.
	LogFormat: "text",
	// LogLevel "info" reports milestones and skipped executors.
	LogLevel: "info",
}

// NewConfig validates the fields that are set and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.LogFormat != "" && cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	if err := validateOutput(cfg.Quoting, cfg.Style); err != nil {
		return nil, err
	}
	for _, m := range cfg.Mock {
		if _, err := stage.Parse(m); err != nil {
			return nil, fmt.Errorf("invalid mock: %w", err)
		}
	}
	if len(cfg.CompileCommand) > 0 && cfg.CompileCommand[0] == "" {
		return nil, errors.New("compile command must name a program")
	}
	if cfg.SkipCompile && len(cfg.CompileCommand) > 0 {
		return nil, errors.New("compile command and skip-compile are mutually exclusive")
	}
	return &cfg, nil
}

func validateOutput(quoting, style string) error {
	if quoting != "" {
		if _, err := render.ParseQuoting(quoting); err != nil {
			return err
		}
	}
	switch strings.ToLower(style) {
	case "", StyleArguments, StyleFunction:
		return nil
	default:
		return fmt.Errorf("unknown style '%s', expected '%s' or '%s'", style, StyleArguments, StyleFunction)
	}
}

// first returns the first non-empty value.
func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
