package stage

import (
	"context"
	"fmt"

	"github.com/specialistvlad/pipegen/internal/ctxlog"
)

// Factory builds the provider of one stage in one mode.
type Factory func(Stage) Provider

type registryKey struct {
	stage Stage
	mode  Mode
}

// Registry maps each stage and mode to its provider factory.
type Registry struct {
	factories map[registryKey]Factory
}

// NewRegistry returns a registry with the real and mocked providers of every
// stage registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[registryKey]Factory)}
	for _, s := range All() {
		r.Register(s, Real, func(s Stage) Provider { return realProvider{stage: s} })
		r.Register(s, Mocked, func(s Stage) Provider { return mockedProvider{stage: s} })
	}
	return r
}

// Register adds a factory. Registering the same stage and mode twice is a
// programming error and panics.
func (r *Registry) Register(s Stage, m Mode, f Factory) {
	key := registryKey{stage: s, mode: m}
	if _, exists := r.factories[key]; exists {
		panic(fmt.Sprintf("provider for stage '%s' in mode %s already registered", s, m))
	}
	r.factories[key] = f
}

// Resolve builds the plan: stages in mocked run mocked, all others real.
func (r *Registry) Resolve(ctx context.Context, mocked []Stage) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	isMocked := make(map[Stage]bool, len(mocked))
	for _, s := range mocked {
		parsed, err := Parse(string(s))
		if err != nil {
			return nil, err
		}
		isMocked[parsed] = true
	}

	p := &Plan{providers: make(map[Stage]Provider, len(All()))}
	for _, s := range All() {
		mode := Real
		if isMocked[s] {
			mode = Mocked
		}
		f, ok := r.factories[registryKey{stage: s, mode: mode}]
		if !ok {
			return nil, fmt.Errorf("no provider registered for stage '%s' in mode %s", s, mode)
		}
		p.providers[s] = f(s)
		p.order = append(p.order, s)
		logger.Debug("Resolved stage provider.", "stage", s, "mode", mode)
	}
	return p, nil
}

// Plan is the resolved provider of every stage.
type Plan struct {
	providers map[Stage]Provider
	order     []Stage
}

// Provider returns the provider of s, or nil for an unknown stage.
func (p *Plan) Provider(s Stage) Provider {
	return p.providers[s]
}

// Mocked returns the mocked stages in pipeline order.
func (p *Plan) Mocked() []Stage {
	var out []Stage
	for _, s := range p.order {
		if p.providers[s].Mode() == Mocked {
			out = append(out, s)
		}
	}
	return out
}

// CompileArgs concatenates the compile arguments of every stage in pipeline
// order.
func (p *Plan) CompileArgs() []string {
	var out []string
	for _, s := range p.order {
		out = append(out, p.providers[s].CompileArgs()...)
	}
	return out
}

// Required reports whether an executor belonging to stageName, declared
// required or not, must be present. Executors without a stage keep their
// declaration.
func (p *Plan) Required(stageName string, declared bool) (bool, error) {
	if stageName == "" {
		return declared, nil
	}
	s, err := Parse(stageName)
	if err != nil {
		return false, err
	}
	return p.providers[s].Requires(declared), nil
}
