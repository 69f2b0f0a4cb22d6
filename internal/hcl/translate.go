package hcl

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/pipegen/internal/binding"
	"github.com/specialistvlad/pipegen/internal/config"
	"github.com/specialistvlad/pipegen/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// modelBuilder merges decoded files into one model. Generator and compile
// blocks may appear in only one file, values keys and executor names must be
// unique across files.
type modelBuilder struct {
	model         *config.Model
	generatorFrom string
	compileFrom   string
	valueFrom     map[string]string
}

func newModelBuilder() *modelBuilder {
	return &modelBuilder{
		model:     &config.Model{Values: make(map[string]string)},
		valueFrom: make(map[string]string),
	}
}

func (b *modelBuilder) add(ctx context.Context, filename string, hclFile *hcl.File, baseDir string) error {
	logger := ctxlog.FromContext(ctx)
	evalCtx := newEvalContext(baseDir)

	root, err := decodeFile(hclFile, evalCtx)
	if err != nil {
		return fmt.Errorf("failed to decode HCL file %s: %w", filename, err)
	}

	if len(root.Generator) == 1 {
		if b.generatorFrom != "" {
			return fmt.Errorf("generator block in %s is already declared in %s", filename, b.generatorFrom)
		}
		b.generatorFrom = filename
		b.model.Generator = translateGenerator(root.Generator[0], baseDir)
	}

	if len(root.Compile) == 1 {
		if b.compileFrom != "" {
			return fmt.Errorf("compile block in %s is already declared in %s", filename, b.compileFrom)
		}
		compile, err := translateCompile(root.Compile[0], baseDir)
		if err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		b.compileFrom = filename
		b.model.Compile = compile
	}

	values, err := evalValues(root.Values, evalCtx)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	for name, v := range values {
		if prev, dup := b.valueFrom[name]; dup {
			return fmt.Errorf("value '%s' in %s is already declared in %s", name, filename, prev)
		}
		b.valueFrom[name] = filename
		b.model.Values[name] = v
	}

	for _, blk := range root.Executors {
		exec, err := translateExecutor(blk, evalCtx)
		if err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		b.model.Executors = append(b.model.Executors, exec)
	}

	logger.Debug("Loaded HCL file.", "file", filename, "executors", len(root.Executors), "values", len(values))
	return nil
}

func (b *modelBuilder) finish(ctx context.Context) (*config.Model, error) {
	if err := b.model.Validate(); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("HCL loading complete.",
		"executors", len(b.model.Executors),
		"values", len(b.model.Values),
		"compile", b.model.Compile != nil,
	)
	return b.model, nil
}

// relativeTo resolves a non-empty relative path against the directory of the
// file that declared it.
func relativeTo(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func translateGenerator(g *generatorBlock, baseDir string) config.Generator {
	return config.Generator{
		Manifest:                relativeTo(baseDir, g.Manifest),
		Template:                relativeTo(baseDir, g.Template),
		Output:                  relativeTo(baseDir, g.Output),
		Quoting:                 g.Quoting,
		Style:                   g.Style,
		ReservedPathIdentifiers: g.ReservedPathIdentifiers,
	}
}

// translateCompile runs the command from the declaring file's directory
// unless dir says otherwise.
func translateCompile(c *compileBlock, baseDir string) (*config.Compile, error) {
	if len(c.Command) == 0 || c.Command[0] == "" {
		return nil, fmt.Errorf("compile block needs a non-empty command")
	}
	out := &config.Compile{Command: c.Command, Dir: baseDir}
	if c.Dir != "" {
		out.Dir = relativeTo(baseDir, c.Dir)
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid compile timeout '%s': %w", c.Timeout, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("compile timeout must be positive, got %s", d)
		}
		out.Timeout = d
	}
	return out, nil
}

// translateExecutor evaluates every leftover attribute of the block into the
// executor's binding bundle.
func translateExecutor(blk *executorBlock, evalCtx *hcl.EvalContext) (*config.Executor, error) {
	attrs, diags := blk.Remain.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("executor '%s': %w", blk.Name, diags)
	}

	bundle := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		v, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("executor '%s': %w", blk.Name, diags)
		}
		if !v.IsWhollyKnown() {
			return nil, fmt.Errorf("executor '%s': binding '%s' is not known at load time", blk.Name, name)
		}
		bundle[name] = v
	}

	val := cty.EmptyObjectVal
	if len(bundle) > 0 {
		val = cty.ObjectVal(bundle)
	}
	return &config.Executor{
		Name:     blk.Name,
		Stage:    blk.Stage,
		Required: blk.Required,
		Bundle:   val,
	}, nil
}

// evalValues evaluates the values attribute into template strings. Strings,
// numbers and bools are converted directly, anything else is JSON-encoded.
func evalValues(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]string, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("values: %w", diags)
	}
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("values must be an object, got %s", ty.FriendlyName())
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("values are not known at load time")
	}

	out := make(map[string]string, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		k, elem := it.Element()
		name := k.AsString()
		if elem.IsNull() {
			return nil, fmt.Errorf("value '%s' is null", name)
		}
		if s, err := convert.Convert(elem, cty.String); err == nil {
			out[name] = s.AsString()
			continue
		}
		s, err := binding.MarshalJSON(elem)
		if err != nil {
			return nil, fmt.Errorf("value '%s': %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}
