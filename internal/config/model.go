package config

import (
	"fmt"
	"time"

	"github.com/specialistvlad/pipegen/internal/binding"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified representation of a generator configuration.
type Model struct {
	Generator Generator
	Compile   *Compile
	// Executors are kept in declaration order; it is also rendering order.
	Executors []*Executor
	// Values are extra template slots, e.g. a ConfigMap body read from disk.
	Values map[string]string
}

// Generator holds file locations and output conventions. Empty fields mean
// "not set here" and are filled from flags or built-in defaults.
type Generator struct {
	Manifest                string
	Template                string
	Output                  string
	Quoting                 string
	Style                   string
	ReservedPathIdentifiers []string
}

// Compile describes the upstream command that produces the manifest.
type Compile struct {
	Command []string
	Dir     string
	Timeout time.Duration
}

// Executor is one executor of interest.
type Executor struct {
	Name string
	// Stage is the pipeline stage the executor belongs to ("sdg", "train",
	// "eval"), or empty when it is not tied to a mockable stage.
	Stage string
	// Required executors must be present in the manifest.
	Required bool
	// Bundle is the literal binding bundle for the executor.
	Bundle cty.Value
}

// BindingTable builds the immutable binding table from every executor bundle.
func (m *Model) BindingTable() (*binding.Table, error) {
	bundles := make(map[string]cty.Value, len(m.Executors))
	for _, e := range m.Executors {
		bundles[e.Name] = e.Bundle
	}
	t, err := binding.New(bundles)
	if err != nil {
		return nil, fmt.Errorf("invalid binding table: %w", err)
	}
	return t, nil
}

// Validate checks the model for duplicate or unnamed executors.
func (m *Model) Validate() error {
	seen := make(map[string]struct{}, len(m.Executors))
	for _, e := range m.Executors {
		if e.Name == "" {
			return fmt.Errorf("executor with an empty name")
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("executor '%s' is declared more than once", e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}
