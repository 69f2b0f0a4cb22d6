package hcl

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/pipegen/internal/config"
	"github.com/specialistvlad/pipegen/internal/ctxlog"
	"github.com/specialistvlad/pipegen/internal/fsutil"
)

//go:embed defaults.hcl
var defaultsHCL []byte

// DefaultsFilename is the name diagnostics use for the built-in configuration.
const DefaultsFilename = "defaults.hcl"

// ErrNoConfigFiles is returned when the given paths contain no .hcl files.
var ErrNoConfigFiles = errors.New("no .hcl configuration files found")

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// DefaultsDir is the directory file() resolves against in the built-in
	// configuration.
	DefaultsDir string
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader. The built-in
// configuration reads files relative to the working directory.
func NewLoader() *Loader {
	return &Loader{DefaultsDir: "."}
}

// Load parses every .hcl file found under paths, in path order, and merges
// them into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoConfigFiles, paths)
	}
	logger.Debug("Discovered HCL files.", "files", files)

	parser := hclparse.NewParser()
	b := newModelBuilder()
	for _, path := range files {
		hclFile, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
		}
		if err := b.add(ctx, path, hclFile, filepath.Dir(path)); err != nil {
			return nil, err
		}
	}
	return b.finish(ctx)
}

// LoadDefaults parses the embedded configuration.
func (l *Loader) LoadDefaults(ctx context.Context) (*config.Model, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(defaultsHCL, DefaultsFilename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse built-in configuration: %w", diags)
	}
	b := newModelBuilder()
	if err := b.add(ctx, DefaultsFilename, hclFile, l.DefaultsDir); err != nil {
		return nil, err
	}
	return b.finish(ctx)
}

// findAllHCLFiles expands directories and drops duplicates. Unlike an
// unconfigured search path, a path given here must exist.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing config path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", path, err)
		}
		for _, p := range found {
			add(p)
		}
	}
	return all, nil
}

// fileRoot is used to decode all top-level content of a configuration file.
type fileRoot struct {
	Generator []*generatorBlock `hcl:"generator,block"`
	Compile   []*compileBlock   `hcl:"compile,block"`
	Executors []*executorBlock  `hcl:"executor,block"`
	Values    hcl.Expression    `hcl:"values,optional"`
}

type generatorBlock struct {
	Manifest                string   `hcl:"manifest,optional"`
	Template                string   `hcl:"template,optional"`
	Output                  string   `hcl:"output,optional"`
	Quoting                 string   `hcl:"quoting,optional"`
	Style                   string   `hcl:"style,optional"`
	ReservedPathIdentifiers []string `hcl:"reserved_path_identifiers,optional"`
}

type compileBlock struct {
	Command []string `hcl:"command"`
	Dir     string   `hcl:"dir,optional"`
	Timeout string   `hcl:"timeout,optional"`
}

type executorBlock struct {
	Name     string   `hcl:"name,label"`
	Stage    string   `hcl:"stage,optional"`
	Required bool     `hcl:"required,optional"`
	Remain   hcl.Body `hcl:",remain"`
}

// decodeFile decodes one parsed file with an evaluation context rooted at
// baseDir.
func decodeFile(hclFile *hcl.File, evalCtx *hcl.EvalContext) (*fileRoot, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
		return nil, diags
	}
	if len(root.Generator) > 1 {
		return nil, fmt.Errorf("at most one generator block is allowed per file, found %d", len(root.Generator))
	}
	if len(root.Compile) > 1 {
		return nil, fmt.Errorf("at most one compile block is allowed per file, found %d", len(root.Compile))
	}
	return &root, nil
}
