package placeholder

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// ReservedPathIdentifiers keep their ".path" accessor during cleanup. Only
// "os" is reserved, so "os.path.join" survives while "taxonomy.path" becomes
// "taxonomy". The list is not a general "leave paths alone" policy.
var ReservedPathIdentifiers = []string{"os"}

const cleanupTimeout = 5 * time.Second

type cleanupRule struct {
	name        string
	re          *regexp2.Regexp
	replacement string
}

// Cleaner turns component source embedded in a command into plain function
// code: it drops no-op framework imports and type annotations, and strips
// ".path" accessors from artifact parameters.
type Cleaner struct {
	rules []cleanupRule
}

// NewCleaner builds a cleaner. With no reserved identifiers given it uses
// ReservedPathIdentifiers.
func NewCleaner(reserved ...string) (*Cleaner, error) {
	if len(reserved) == 0 {
		reserved = ReservedPathIdentifiers
	}
	escaped := make([]string, 0, len(reserved))
	for _, id := range reserved {
		if id == "" {
			return nil, fmt.Errorf("reserved path identifier must not be empty")
		}
		escaped = append(escaped, regexp2.Escape(id))
	}

	specs := []struct {
		name, pattern, replacement string
		opts                       regexp2.RegexOptions
	}{
		{
			name:    "no-op imports",
			pattern: `^[ \t]*(?:import kfp|from kfp import dsl|from kfp\.dsl import \*)[ \t]*(?:\r?\n|\z)`,
			opts:    regexp2.Multiline,
		},
		{
			name:    "type annotations",
			pattern: `[ \t]*:[ \t]*(?:dsl\.)?(?:Input|Output)\[(?:[^\[\]\r\n]|\[[^\[\]\r\n]*\])*\]`,
		},
		{
			name:    "path accessor",
			pattern: `(?<=[\w\])])(?<!\b(?:` + strings.Join(escaped, "|") + `))\.path\b`,
		},
	}

	c := &Cleaner{}
	for _, s := range specs {
		re, err := regexp2.Compile(s.pattern, s.opts)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s cleanup pattern: %w", s.name, err)
		}
		re.MatchTimeout = cleanupTimeout
		c.rules = append(c.rules, cleanupRule{name: s.name, re: re, replacement: s.replacement})
	}
	return c, nil
}

// Clean applies every cleanup rule, in order, to s.
func (c *Cleaner) Clean(s string) (string, error) {
	for _, rule := range c.rules {
		out, err := rule.re.Replace(s, rule.replacement, -1, -1)
		if err != nil {
			return "", fmt.Errorf("cleanup of %s failed: %w", rule.name, err)
		}
		s = out
	}
	return s, nil
}

// CleanAll applies Clean to every element.
func (c *Cleaner) CleanAll(elems []string) ([]string, error) {
	out := make([]string, len(elems))
	for i, elem := range elems {
		cleaned, err := c.Clean(elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = cleaned
	}
	return out, nil
}
