package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/pipegen/internal/binding"
	"github.com/specialistvlad/pipegen/internal/config"
	"github.com/specialistvlad/pipegen/internal/ctxlog"
	"github.com/specialistvlad/pipegen/internal/fsutil"
	"github.com/specialistvlad/pipegen/internal/manifest"
	"github.com/specialistvlad/pipegen/internal/placeholder"
	"github.com/specialistvlad/pipegen/internal/render"
)

// ErrExecutorNotFound is returned when a required executor is missing from
// the manifest.
var ErrExecutorNotFound = errors.New("required executor not found")

// Result summarizes a successful generation run.
type Result struct {
	OutputPath string
	// Rendered lists the executors that produced template slots, in
	// configuration order.
	Rendered []string
	// Skipped lists optional executors absent from the manifest.
	Skipped []string
	Bytes   int
}

// settings are the effective file locations and output conventions.
type settings struct {
	manifest string
	template string
	output   string
	quoting  render.Quoting
	style    string
	reserved []string
}

func (a *App) settings() (settings, error) {
	g := a.model.Generator
	q, err := render.ParseQuoting(first(a.config.Quoting, g.Quoting, Defaults.Quoting))
	if err != nil {
		return settings{}, err
	}
	return settings{
		manifest: first(a.config.ManifestPath, g.Manifest, Defaults.ManifestPath),
		template: first(a.config.TemplatePath, g.Template, Defaults.TemplatePath),
		output:   first(a.config.OutputPath, g.Output, Defaults.OutputPath),
		quoting:  q,
		style:    strings.ToLower(first(a.config.Style, g.Style, Defaults.Style)),
		reserved: g.ReservedPathIdentifiers,
	}, nil
}

// Generate runs one generation: compile, load the manifest, locate and
// resolve every configured executor, render the template and write the
// script. Every fatal error is returned before the output file is touched.
func (a *App) Generate(ctx context.Context) (*Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger
	logger.Debug("App.Generate method started.")

	s, err := a.settings()
	if err != nil {
		return nil, err
	}

	tmpl, err := render.ParseFile(s.template)
	if err != nil {
		return nil, err
	}
	logger.Debug("Template parsed.", "template", s.template, "references", tmpl.References())

	var cleaner *placeholder.Cleaner
	if s.style == StyleFunction {
		if cleaner, err = placeholder.NewCleaner(s.reserved...); err != nil {
			return nil, err
		}
	}

	if err := a.compiler.Compile(ctx, a.plan.CompileArgs()); err != nil {
		return nil, err
	}

	m, err := manifest.LoadFile(s.manifest)
	if err != nil {
		return nil, err
	}
	logger.Info("Manifest loaded.", "path", s.manifest, "documents", len(m.Documents))

	table, err := a.model.BindingTable()
	if err != nil {
		return nil, err
	}
	logger.Debug("Binding table built.", "executors", table.Executors())

	steps, res, err := a.renderSteps(ctx, m, table, cleaner)
	if err != nil {
		return nil, err
	}
	res.OutputPath = s.output

	slots, err := render.NewSlots(s.quoting, steps, a.model.Values)
	if err != nil {
		return nil, err
	}
	text, err := tmpl.Render(ctx, slots)
	if err != nil {
		return nil, err
	}

	if err := fsutil.WriteFileAtomic(s.output, []byte(text), 0o644); err != nil {
		return nil, err
	}
	res.Bytes = len(text)
	logger.Info("Standalone script generated.", "path", s.output, "executors", len(res.Rendered), "skipped", len(res.Skipped))
	return res, nil
}

// renderSteps resolves executors one at a time in configuration order and
// stops at the first fatal error.
func (a *App) renderSteps(
	ctx context.Context,
	m *manifest.Manifest,
	table *binding.Table,
	cleaner *placeholder.Cleaner,
) ([]render.Step, *Result, error) {
	res := &Result{}
	steps := make([]render.Step, 0, len(a.model.Executors))
	for _, exec := range a.model.Executors {
		step, found, err := a.renderStep(ctx, m, table, cleaner, exec)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			res.Skipped = append(res.Skipped, exec.Name)
			continue
		}
		steps = append(steps, step)
		res.Rendered = append(res.Rendered, exec.Name)
	}
	return steps, res, nil
}

// renderStep locates one executor and resolves its container. found is false
// only for an optional executor absent from the manifest.
func (a *App) renderStep(
	ctx context.Context,
	m *manifest.Manifest,
	table *binding.Table,
	cleaner *placeholder.Cleaner,
	exec *config.Executor,
) (render.Step, bool, error) {
	ctx = ctxlog.With(ctx, "executor", exec.Name)
	logger := ctxlog.FromContext(ctx)

	required, err := a.plan.Required(exec.Stage, exec.Required)
	if err != nil {
		return render.Step{}, false, fmt.Errorf("executor '%s': %w", exec.Name, err)
	}

	spec, found, err := manifest.Locate(ctx, m, exec.Name)
	if err != nil {
		return render.Step{}, false, err
	}
	if !found {
		if required {
			return render.Step{}, false, fmt.Errorf("%w: '%s'", ErrExecutorNotFound, exec.Name)
		}
		logger.Warn("Optional executor not found in manifest, skipping.", "stage", exec.Stage)
		return render.Step{}, false, nil
	}

	resolver := placeholder.NewResolver(exec.Name, table)
	args, err := resolver.Resolve(spec.Args)
	if err != nil {
		return render.Step{}, false, err
	}

	command := spec.Command
	if cleaner != nil {
		if command, err = cleaner.CleanAll(command); err != nil {
			return render.Step{}, false, fmt.Errorf("executor '%s': %w", exec.Name, err)
		}
	}

	logger.Debug("Executor resolved.", "image", spec.Image, "args", len(args), "holes", len(resolver.Holes()))
	return render.Step{
		Name:    placeholder.Identifier(exec.Name),
		Image:   spec.Image,
		Command: command,
		Args:    args,
		Holes:   resolver.Holes(),
	}, true, nil
}
