package manifest

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// Lookup is the outcome of a single descent step into a manifest tree.
type Lookup int

const (
	// Found means the requested value exists and has the expected shape.
	Found Lookup = iota
	// Absent means the value does not exist or is null.
	Absent
	// Malformed means the value (or its parent) exists but has the wrong shape.
	Malformed
)

func (l Lookup) String() string {
	switch l {
	case Found:
		return "found"
	case Absent:
		return "absent"
	case Malformed:
		return "malformed"
	default:
		return "Lookup(" + strconv.Itoa(int(l)) + ")"
	}
}

// Node is a read-only view of one position inside a manifest document. The
// zero value is an absent node.
type Node struct {
	raw  *yaml.Node
	path string
}

// Entry is one key/value pair of a mapping node, in document order.
type Entry struct {
	Key   string
	Value Node
}

// Path returns the dotted location of the node, e.g. "doc[0].deploymentSpec.executors".
func (n Node) Path() string {
	return n.path
}

// Has reports whether the node is a mapping containing key, regardless of the
// value stored under it.
func (n Node) Has(key string) bool {
	v := n.node()
	if v == nil || v.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(v.Content); i += 2 {
		if v.Content[i].Value == key {
			return true
		}
	}
	return false
}

// IsNull reports whether the node is missing, an empty document or an explicit null.
func (n Node) IsNull() bool {
	return isNull(n.node())
}

// IsEmpty reports whether the node carries no data: null, an empty mapping,
// an empty sequence or an empty string.
func (n Node) IsEmpty() bool {
	v := n.node()
	if isNull(v) {
		return true
	}
	switch v.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		return len(v.Content) == 0
	case yaml.ScalarNode:
		return v.Value == ""
	}
	return false
}

// Get descends into a mapping. Null parents and missing keys are Absent;
// non-mapping parents are Malformed.
func (n Node) Get(key string) (Node, Lookup) {
	v := n.node()
	if isNull(v) {
		return Node{}, Absent
	}
	if v.Kind != yaml.MappingNode {
		return Node{}, Malformed
	}
	for i := 0; i+1 < len(v.Content); i += 2 {
		if v.Content[i].Value == key {
			return Node{raw: v.Content[i+1], path: n.child(key)}, Found
		}
	}
	return Node{}, Absent
}

// Entries returns the key/value pairs of a mapping in document order.
func (n Node) Entries() ([]Entry, Lookup) {
	v := n.node()
	if isNull(v) {
		return nil, Absent
	}
	if v.Kind != yaml.MappingNode {
		return nil, Malformed
	}
	entries := make([]Entry, 0, len(v.Content)/2)
	for i := 0; i+1 < len(v.Content); i += 2 {
		key := v.Content[i].Value
		entries = append(entries, Entry{
			Key:   key,
			Value: Node{raw: v.Content[i+1], path: n.child(key)},
		})
	}
	return entries, Found
}

// Scalar returns the literal text of a scalar node. Numbers and booleans are
// returned exactly as written in the document.
func (n Node) Scalar() (string, Lookup) {
	v := n.node()
	if isNull(v) {
		return "", Absent
	}
	if v.Kind != yaml.ScalarNode {
		return "", Malformed
	}
	return v.Value, Found
}

// Strings returns a sequence of scalars. A sequence holding anything other
// than non-null scalars is Malformed.
func (n Node) Strings() ([]string, Lookup) {
	v := n.node()
	if isNull(v) {
		return nil, Absent
	}
	if v.Kind != yaml.SequenceNode {
		return nil, Malformed
	}
	out := make([]string, 0, len(v.Content))
	for i, item := range v.Content {
		s, res := Node{raw: item, path: n.path + "[" + strconv.Itoa(i) + "]"}.Scalar()
		if res != Found {
			return nil, Malformed
		}
		out = append(out, s)
	}
	return out, Found
}

func (n Node) child(key string) string {
	if n.path == "" {
		return key
	}
	return n.path + "." + key
}

// node unwraps document and alias indirections.
func (n Node) node() *yaml.Node {
	v := n.raw
	for v != nil {
		switch v.Kind {
		case yaml.DocumentNode:
			if len(v.Content) == 0 {
				return nil
			}
			v = v.Content[0]
		case yaml.AliasNode:
			v = v.Alias
		default:
			return v
		}
	}
	return nil
}

func isNull(v *yaml.Node) bool {
	if v == nil || v.Kind == 0 {
		return true
	}
	return v.Kind == yaml.ScalarNode && v.ShortTag() == "!!null"
}
