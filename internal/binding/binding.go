// Package binding holds the per-executor literal values a generation run
// supplies in place of what the orchestration framework would inject at
// run time.
package binding

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Table maps executor names to their binding bundles. It is immutable once
// built; a missing executor or key is reported as absent, never as an error.
type Table struct {
	bundles map[string]cty.Value
}

// New builds a table from already converted bundles. Every bundle must be a
// known object or map value.
func New(bundles map[string]cty.Value) (*Table, error) {
	t := &Table{bundles: make(map[string]cty.Value, len(bundles))}
	for name, bundle := range bundles {
		if bundle == cty.NilVal || bundle.IsNull() {
			continue
		}
		if !bundle.IsWhollyKnown() {
			return nil, fmt.Errorf("binding bundle for executor '%s' contains unknown values", name)
		}
		ty := bundle.Type()
		if !ty.IsObjectType() && !ty.IsMapType() {
			return nil, fmt.Errorf("binding bundle for executor '%s' must be an object, got %s", name, ty.FriendlyName())
		}
		t.bundles[name] = bundle
	}
	return t, nil
}

// FromGo builds a table from plain Go values, as a programmatic caller would
// supply them.
func FromGo(bundles map[string]map[string]any) (*Table, error) {
	converted := make(map[string]cty.Value, len(bundles))
	for name, bundle := range bundles {
		v, err := ToCtyValue(map[string]any(bundle))
		if err != nil {
			return nil, fmt.Errorf("binding bundle for executor '%s': %w", name, err)
		}
		converted[name] = v
	}
	return New(converted)
}

// Executors returns the names of executors with a bundle, sorted.
func (t *Table) Executors() []string {
	names := make([]string, 0, len(t.bundles))
	for name := range t.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bundle returns the full bundle of an executor, or an empty object.
func (t *Table) Bundle(executor string) cty.Value {
	if t == nil {
		return cty.EmptyObjectVal
	}
	if bundle, ok := t.bundles[executor]; ok {
		return bundle
	}
	return cty.EmptyObjectVal
}

// Lookup returns the value bound to key for an executor. Keys are looked up
// under inputs.parameterValues first and then at the top of the bundle.
// Null values count as absent.
func (t *Table) Lookup(executor, key string) (cty.Value, bool) {
	bundle := t.Bundle(executor)
	if inputs, ok := attr(bundle, "inputs"); ok {
		if params, ok := attr(inputs, "parameterValues"); ok {
			if v, ok := attr(params, key); ok && !v.IsNull() {
				return v, true
			}
		}
	}
	if v, ok := attr(bundle, key); ok && !v.IsNull() {
		return v, true
	}
	return cty.NilVal, false
}

// JSON serializes the executor's whole bundle as compact JSON with sorted
// object keys. It is not byte-identical to a Python json.dumps of the same
// bundle, which keeps insertion order and pads separators with spaces.
func (t *Table) JSON(executor string) (string, error) {
	return MarshalJSON(t.Bundle(executor))
}

// MarshalJSON renders a single value as JSON.
func MarshalJSON(v cty.Value) (string, error) {
	if v == cty.NilVal {
		return "null", nil
	}
	out, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return "", fmt.Errorf("failed to serialize value as JSON: %w", err)
	}
	return string(out), nil
}

func attr(v cty.Value, name string) (cty.Value, bool) {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return cty.NilVal, false
	}
	ty := v.Type()
	switch {
	case ty.IsObjectType():
		if !ty.HasAttribute(name) {
			return cty.NilVal, false
		}
		return v.GetAttr(name), true
	case ty.IsMapType():
		key := cty.StringVal(name)
		if v.HasIndex(key).True() {
			return v.Index(key), true
		}
	}
	return cty.NilVal, false
}
