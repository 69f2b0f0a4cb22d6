package render

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/specialistvlad/pipegen/internal/binding"
	"github.com/specialistvlad/pipegen/internal/placeholder"
	"github.com/zclconf/go-cty/cty"
)

// Step is the fully resolved container of one executor.
type Step struct {
	// Name prefixes the step's slots, e.g. "exec_sdg_op".
	Name    string
	Image   string
	Command []string
	Args    []string
	Holes   []placeholder.Hole
}

// Slot suffixes produced for every step.
const (
	SuffixImage   = "_image"
	SuffixCommand = "_command"
	SuffixArgs    = "_args"
	SuffixHoles   = "_holes"
)

// Slots is the set of values a template may reference.
type Slots struct {
	quoting Quoting
	values  map[string]string
}

// NewSlots builds the slot set for steps plus any extra string values.
// A name produced twice is an error.
func NewSlots(quoting Quoting, steps []Step, extra map[string]string) (Slots, error) {
	s := Slots{quoting: quoting, values: make(map[string]string)}
	for _, step := range steps {
		if step.Name == "" {
			return Slots{}, fmt.Errorf("rendered step has no name")
		}
		holes, err := holesJSON(step.Holes)
		if err != nil {
			return Slots{}, fmt.Errorf("step %s: %w", step.Name, err)
		}
		for suffix, value := range map[string]string{
			SuffixImage:   step.Image,
			SuffixCommand: quoting.Join(step.Command),
			SuffixArgs:    quoting.Join(step.Args),
			SuffixHoles:   holes,
		} {
			if err := s.set(step.Name+suffix, value); err != nil {
				return Slots{}, err
			}
		}
	}
	for name, value := range extra {
		if err := s.set(name, value); err != nil {
			return Slots{}, err
		}
	}
	return s, nil
}

var slotName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (s Slots) set(name, value string) error {
	if !slotName.MatchString(name) {
		return fmt.Errorf("template slot name '%s' is not a valid identifier", name)
	}
	if _, exists := s.values[name]; exists {
		return fmt.Errorf("template slot '%s' is produced twice", name)
	}
	s.values[name] = value
	return nil
}

// holesJSON renders hole label -> default value; holes without a default map
// to null.
func holesJSON(holes []placeholder.Hole) (string, error) {
	attrs := make(map[string]cty.Value, len(holes))
	for _, h := range holes {
		if h.HasDefault() {
			attrs[h.Label] = h.Default
		} else {
			attrs[h.Label] = cty.NullVal(cty.String)
		}
	}
	return binding.MarshalJSON(cty.ObjectVal(attrs))
}

// helperNames lists template helpers so they are not taken for slots.
var helperNames = map[string]struct{}{
	"quote": {}, "join": {}, "upper": {}, "lower": {}, "indent": {},
}

func helpers(q Quoting) template.FuncMap {
	return template.FuncMap{
		"quote": q.Quote,
		"join":  func(sep string, elems []string) string { return strings.Join(elems, sep) },
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"indent": func(n int, s string) string {
			pad := strings.Repeat(" ", n)
			return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
		},
	}
}
