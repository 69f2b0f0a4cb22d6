package placeholder

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/specialistvlad/pipegen/internal/binding"
)

// ErrMalformedPlaceholder is returned when a placeholder prefix is present but
// the rest of the placeholder does not parse.
var ErrMalformedPlaceholder = errors.New("malformed placeholder")

// SyntaxError reports a recognised placeholder prefix with unparseable syntax.
type SyntaxError struct {
	Executor string
	Rule     string
	Index    int
	Text     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("executor '%s': element %d: unparseable %s placeholder in %q", e.Executor, e.Index, e.Rule, e.Text)
}

func (e *SyntaxError) Unwrap() error {
	return ErrMalformedPlaceholder
}

// Scope is what a rule may consult while rewriting a match.
type Scope struct {
	// Executor is the executor name as it appears in the manifest.
	Executor string
	// Bindings is the run's binding table; it may be nil.
	Bindings *binding.Table

	holes *holeSet
}

// Label is the executor name with dashes replaced by underscores.
func (s Scope) Label() string {
	return Identifier(s.Executor)
}

// Rule rewrites one placeholder form. Prefix identifies the form: once every
// well-formed match has been rewritten, a prefix left in the unmatched text
// means the placeholder is malformed. An empty Prefix disables that check.
type Rule struct {
	Name    string
	Prefix  string
	Pattern *regexp.Regexp
	Rewrite func(scope Scope, submatches []string) (string, error)
}

// Apply rewrites every match of the rule in s.
func (r Rule) Apply(scope Scope, s string) (string, error) {
	matches := r.Pattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		if r.Prefix != "" && strings.Contains(s, r.Prefix) {
			return "", ErrMalformedPlaceholder
		}
		return s, nil
	}

	var b strings.Builder
	last := 0
	for _, loc := range matches {
		gap := s[last:loc[0]]
		if r.Prefix != "" && strings.Contains(gap, r.Prefix) {
			return "", ErrMalformedPlaceholder
		}
		b.WriteString(gap)

		submatches := make([]string, 0, len(loc)/2)
		for i := 0; i+1 < len(loc); i += 2 {
			if loc[i] < 0 {
				submatches = append(submatches, "")
				continue
			}
			submatches = append(submatches, s[loc[i]:loc[i+1]])
		}
		replacement, err := r.Rewrite(scope, submatches)
		if err != nil {
			return "", err
		}
		b.WriteString(replacement)
		last = loc[1]
	}
	tail := s[last:]
	if r.Prefix != "" && strings.Contains(tail, r.Prefix) {
		return "", ErrMalformedPlaceholder
	}
	b.WriteString(tail)
	return b.String(), nil
}

// Identifier turns an executor name into the form used in hole labels and
// template slot names: "exec-sdg-op" becomes "exec_sdg_op".
func Identifier(executor string) string {
	return strings.ReplaceAll(executor, "-", "_")
}

// InputParameterRule rewrites {{$.inputs.parameters['KEY']}} into the named
// hole {<executor>_KEY}. The bound value is recorded as the hole's default
// but never inlined.
func InputParameterRule() Rule {
	return Rule{
		Name:    "input parameter",
		Prefix:  "{{$.inputs.parameters[",
		Pattern: regexp.MustCompile(`\{\{\$\.inputs\.parameters\['([^']+)'\]\}\}`),
		Rewrite: func(scope Scope, sub []string) (string, error) {
			key := sub[1]
			label := scope.Label() + "_" + key
			scope.holes.add(scope, label, key)
			return "{" + label + "}", nil
		},
	}
}

// OutputArtifactPathRule rewrites {{$.outputs.artifacts['KEY'].path}} into
// the sentinel {KEY_PATH}, e.g. {TAXONOMY_PATH}.
func OutputArtifactPathRule() Rule {
	return Rule{
		Name:    "output artifact path",
		Prefix:  "{{$.outputs.artifacts[",
		Pattern: regexp.MustCompile(`\{\{\$\.outputs\.artifacts\['([^']+)'\]\.path\}\}`),
		Rewrite: func(_ Scope, sub []string) (string, error) {
			return "{" + ArtifactSentinel(sub[1]) + "}", nil
		},
	}
}

// WholeInputRule rewrites {{$}} into the JSON form of the executor's whole
// binding bundle.
func WholeInputRule() Rule {
	return Rule{
		Name:    "whole input",
		Pattern: regexp.MustCompile(`\{\{\$\}\}`),
		Rewrite: func(scope Scope, _ []string) (string, error) {
			return scope.Bindings.JSON(scope.Executor)
		},
	}
}

// DefaultRules returns the rules in the order they must be applied.
func DefaultRules() []Rule {
	return []Rule{
		InputParameterRule(),
		OutputArtifactPathRule(),
		WholeInputRule(),
	}
}

var nonSentinel = regexp.MustCompile(`[^A-Z0-9_]`)

// ArtifactSentinel names the path sentinel for an output artifact key.
func ArtifactSentinel(key string) string {
	return nonSentinel.ReplaceAllString(strings.ToUpper(key), "_") + "_PATH"
}
