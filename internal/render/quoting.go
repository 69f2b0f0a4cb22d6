package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Quoting is the argument-quoting convention of the target script.
type Quoting string

const (
	// QuotingPython renders sequences as Python list literals: ["a", "b"].
	QuotingPython Quoting = "python"
	// QuotingShell renders sequences as space-separated POSIX shell words.
	QuotingShell Quoting = "shell"
)

// ParseQuoting validates a quoting name.
func ParseQuoting(s string) (Quoting, error) {
	switch q := Quoting(strings.ToLower(s)); q {
	case QuotingPython, QuotingShell:
		return q, nil
	default:
		return "", fmt.Errorf("unknown quoting %q: must be '%s' or '%s'", s, QuotingPython, QuotingShell)
	}
}

// Quote renders a single string literal.
func (q Quoting) Quote(s string) string {
	if q == QuotingShell {
		return shellquote.Join(s)
	}
	return pythonString(s)
}

// Join renders a sequence.
func (q Quoting) Join(elems []string) string {
	if q == QuotingShell {
		return shellquote.Join(elems...)
	}
	quoted := make([]string, len(elems))
	for i, e := range elems {
		quoted[i] = pythonString(e)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// pythonString emits a double-quoted literal. JSON string escapes are a
// subset of Python's, so the JSON encoding is used as is.
func pythonString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
