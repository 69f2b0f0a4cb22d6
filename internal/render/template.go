package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"

	"github.com/specialistvlad/pipegen/internal/ctxlog"
)

var (
	// ErrTemplateSyntax is returned when the template text cannot be parsed.
	ErrTemplateSyntax = errors.New("template syntax error")

	// ErrMissingTemplateSlot is returned when the template references a slot
	// that no rendered step or extra value produced.
	ErrMissingTemplateSlot = errors.New("missing template slot")
)

// SlotError names the slot a template referenced but nothing produced.
type SlotError struct {
	Template string
	Slot     string
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("template '%s' references '%s', which was never produced", e.Template, e.Slot)
}

func (e *SlotError) Unwrap() error {
	return ErrMissingTemplateSlot
}

// builtins are the functions text/template predefines.
var builtins = map[string]struct{}{
	"and": {}, "call": {}, "html": {}, "index": {}, "slice": {}, "js": {}, "len": {},
	"not": {}, "or": {}, "print": {}, "printf": {}, "println": {}, "urlquery": {},
	"eq": {}, "ge": {}, "gt": {}, "le": {}, "lt": {}, "ne": {},
}

// Template is a parsed script template.
type Template struct {
	name string
	text string
	refs []string
}

// Parse parses template text and records every slot it references.
func Parse(name, text string) (*Template, error) {
	trees := make(map[string]*parse.Tree)
	tree := parse.New(name)
	tree.Mode = parse.SkipFuncCheck
	if _, err := tree.Parse(text, "", "", trees); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateSyntax, err)
	}

	seen := make(map[string]struct{})
	for _, t := range trees {
		if t.Root != nil {
			collectRefs(t.Root, false, seen)
		}
	}
	refs := make([]string, 0, len(seen))
	for ref := range seen {
		if _, ok := builtins[ref]; ok {
			continue
		}
		if _, ok := helperNames[ref]; ok {
			continue
		}
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	return &Template{name: name, text: text, refs: refs}, nil
}

// ParseFile reads and parses a template file.
func ParseFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	t, err := Parse(path, string(data))
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return t, nil
}

// References returns the slot names the template uses, sorted.
func (t *Template) References() []string {
	return append([]string(nil), t.refs...)
}

// Render checks every reference against slots and executes the template.
func (t *Template) Render(ctx context.Context, slots Slots) (string, error) {
	logger := ctxlog.FromContext(ctx)

	for _, ref := range t.refs {
		if _, ok := slots.values[ref]; !ok {
			return "", &SlotError{Template: t.name, Slot: ref}
		}
	}
	logger.Debug("Template references satisfied.", "template", t.name, "references", len(t.refs), "slots", len(slots.values))

	funcs := helpers(slots.quoting)
	for name, value := range slots.values {
		funcs[name] = constant(value)
	}
	tmpl, err := template.New(t.name).Option("missingkey=error").Funcs(funcs).Parse(t.text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTemplateSyntax, err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, slots.values); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", t.name, err)
	}
	logger.Debug("Template rendered.", "template", t.name, "bytes", b.Len())
	return b.String(), nil
}

func constant(s string) func() string {
	return func() string { return s }
}

// collectRefs walks a parse tree and records identifiers (function calls) and
// top-level fields. Fields inside range/with bodies refer to a different dot
// and are skipped.
func collectRefs(node parse.Node, dotChanged bool, refs map[string]struct{}) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			collectRefs(child, dotChanged, refs)
		}
	case *parse.ActionNode:
		collectRefs(n.Pipe, dotChanged, refs)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			collectRefs(cmd, dotChanged, refs)
		}
	case *parse.CommandNode:
		for _, arg := range n.Args {
			collectRefs(arg, dotChanged, refs)
		}
	case *parse.IdentifierNode:
		refs[n.Ident] = struct{}{}
	case *parse.FieldNode:
		if !dotChanged && len(n.Ident) > 0 {
			refs[n.Ident[0]] = struct{}{}
		}
	case *parse.ChainNode:
		collectRefs(n.Node, dotChanged, refs)
	case *parse.IfNode:
		collectBranch(&n.BranchNode, dotChanged, false, refs)
	case *parse.RangeNode:
		collectBranch(&n.BranchNode, dotChanged, true, refs)
	case *parse.WithNode:
		collectBranch(&n.BranchNode, dotChanged, true, refs)
	case *parse.TemplateNode:
		collectRefs(n.Pipe, dotChanged, refs)
	}
}

func collectBranch(n *parse.BranchNode, dotChanged, changesDot bool, refs map[string]struct{}) {
	collectRefs(n.Pipe, dotChanged, refs)
	collectRefs(n.List, dotChanged || changesDot, refs)
	collectRefs(n.ElseList, dotChanged, refs)
}
