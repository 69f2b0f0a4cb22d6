package binding

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ToCtyValue converts a native Go value into its cty equivalent. Untyped maps
// and slices (as produced by decoding JSON or YAML into any) become objects
// and tuples; everything else goes through gocty's type inference.
func ToCtyValue(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.String), nil
	case cty.Value:
		return x, nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(x))
		for k, elem := range x {
			cv, err := ToCtyValue(elem)
			if err != nil {
				return cty.NilVal, fmt.Errorf("%s: %w", k, err)
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, 0, len(x))
		for i, elem := range x {
			cv, err := ToCtyValue(elem)
			if err != nil {
				return cty.NilVal, fmt.Errorf("[%d]: %w", i, err)
			}
			elems = append(elems, cv)
		}
		return cty.TupleVal(elems), nil
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
