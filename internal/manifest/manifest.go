package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrMalformedManifest is returned when the manifest text cannot be parsed as
// a sequence of YAML documents, or when a section the locator must descend
// through has the wrong shape.
var ErrMalformedManifest = errors.New("malformed manifest")

// Manifest is the ordered forest of documents decoded from a manifest stream.
type Manifest struct {
	Documents []Node
}

// Load decodes every document of a multi-document YAML stream. It performs no
// validation beyond parsing.
func Load(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	m := &Manifest{}
	for i := 0; ; i++ {
		doc := new(yaml.Node)
		err := dec.Decode(doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", ErrMalformedManifest, i, err)
		}
		m.Documents = append(m.Documents, Node{raw: doc, path: "doc[" + strconv.Itoa(i) + "]"})
	}
	return m, nil
}

// LoadFile reads the whole file before parsing it, so no handle stays open
// while the documents are processed.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	m, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest %s: %w", path, err)
	}
	return m, nil
}
