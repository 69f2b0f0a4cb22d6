package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/pipegen/internal/compiler"
	"github.com/specialistvlad/pipegen/internal/config"
	"github.com/specialistvlad/pipegen/internal/ctxlog"
	"github.com/specialistvlad/pipegen/internal/stage"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger   *slog.Logger
	config   *Config
	model    *config.Model
	plan     *stage.Plan
	compiler compiler.Compiler
}

// NewApp is the constructor for the main application. It configures an
// isolated logger writing to logW, loads the generator configuration and
// resolves the stage plan.
func NewApp(logW io.Writer, cfg *Config, loader config.Loader) (*App, error) {
	logger := newLogger(first(cfg.LogLevel, Defaults.LogLevel), first(cfg.LogFormat, Defaults.LogFormat), logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var (
		model *config.Model
		err   error
	)
	if len(cfg.ConfigPaths) > 0 {
		model, err = loader.Load(ctx, cfg.ConfigPaths...)
	} else {
		model, err = loader.LoadDefaults(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.", "executors", len(model.Executors))

	if err := validateOutput(model.Generator.Quoting, model.Generator.Style); err != nil {
		return nil, fmt.Errorf("invalid generator configuration: %w", err)
	}

	mocked := make([]stage.Stage, 0, len(cfg.Mock))
	for _, m := range cfg.Mock {
		s, err := stage.Parse(m)
		if err != nil {
			return nil, err
		}
		mocked = append(mocked, s)
	}
	plan, err := stage.NewRegistry().Resolve(ctx, mocked)
	if err != nil {
		return nil, err
	}
	logger.Debug("Stage plan resolved.", "mocked", plan.Mocked())

	return &App{
		logger:   logger,
		config:   cfg,
		model:    model,
		plan:     plan,
		compiler: newCompiler(cfg, model.Compile, logW),
	}, nil
}

// newCompiler picks the compile implementation: an explicit command wins
// over the configured one, and without either the manifest is used as-is.
func newCompiler(cfg *Config, compile *config.Compile, out io.Writer) compiler.Compiler {
	switch {
	case cfg.SkipCompile:
		return compiler.Noop{}
	case len(cfg.CompileCommand) > 0:
		c := &compiler.Command{Argv: cfg.CompileCommand, Output: out}
		if compile != nil {
			c.Dir = compile.Dir
			c.Timeout = compile.Timeout
		}
		return c
	case compile != nil:
		return &compiler.Command{Argv: compile.Command, Dir: compile.Dir, Timeout: compile.Timeout, Output: out}
	default:
		return compiler.Noop{}
	}
}
