package placeholder

import (
	"errors"
	"sort"

	"github.com/specialistvlad/pipegen/internal/binding"
	"github.com/zclconf/go-cty/cty"
)

// Hole is a named, human-substitutable point left in the generated script.
type Hole struct {
	// Label is the text between the braces, e.g. "exec_sdg_op_repo_branch".
	Label string
	// Key is the input parameter the hole stands for.
	Key string
	// Default is the bound value for Key, or cty.NilVal when none was bound.
	Default cty.Value
}

// HasDefault reports whether the binding table supplied a value for the hole.
func (h Hole) HasDefault() bool {
	return h.Default != cty.NilVal
}

type holeSet struct {
	byLabel map[string]Hole
}

func (s *holeSet) add(scope Scope, label, key string) {
	if s == nil {
		return
	}
	if _, ok := s.byLabel[label]; ok {
		return
	}
	h := Hole{Label: label, Key: key, Default: cty.NilVal}
	if v, ok := scope.Bindings.Lookup(scope.Executor, key); ok {
		h.Default = v
	}
	s.byLabel[label] = h
}

// Resolver rewrites placeholders for a single executor.
type Resolver struct {
	rules []Rule
	scope Scope
}

// NewResolver returns a resolver for executor using the default rule order.
func NewResolver(executor string, bindings *binding.Table) *Resolver {
	return NewResolverWithRules(executor, bindings, DefaultRules()...)
}

// NewResolverWithRules returns a resolver applying rules in the given order.
func NewResolverWithRules(executor string, bindings *binding.Table, rules ...Rule) *Resolver {
	return &Resolver{
		rules: rules,
		scope: Scope{
			Executor: executor,
			Bindings: bindings,
			holes:    &holeSet{byLabel: make(map[string]Hole)},
		},
	}
}

// Resolve returns a copy of elems with every recognised placeholder rewritten.
func (r *Resolver) Resolve(elems []string) ([]string, error) {
	out := make([]string, len(elems))
	for i, elem := range elems {
		resolved, err := r.resolveOne(elem)
		if err != nil {
			var syntaxErr *SyntaxError
			if errors.As(err, &syntaxErr) {
				syntaxErr.Index = i
				return nil, syntaxErr
			}
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func (r *Resolver) resolveOne(s string) (string, error) {
	for _, rule := range r.rules {
		rewritten, err := rule.Apply(r.scope, s)
		if errors.Is(err, ErrMalformedPlaceholder) {
			return "", &SyntaxError{Executor: r.scope.Executor, Rule: rule.Name, Text: s}
		}
		if err != nil {
			return "", err
		}
		s = rewritten
	}
	return s, nil
}

// Holes returns every named hole produced so far, sorted by label.
func (r *Resolver) Holes() []Hole {
	holes := make([]Hole, 0, len(r.scope.holes.byLabel))
	for _, h := range r.scope.holes.byLabel {
		holes = append(holes, h)
	}
	sort.Slice(holes, func(i, j int) bool { return holes[i].Label < holes[j].Label })
	return holes
}
