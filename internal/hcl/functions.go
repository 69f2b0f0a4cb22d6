package hcl

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/tryfunc"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// newEvalContext returns the evaluation context for one configuration file.
// Relative paths given to file() resolve against baseDir.
func newEvalContext(baseDir string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"file":       fileFunc(baseDir),
			"try":        tryfunc.TryFunc,
			"can":        tryfunc.CanFunc,
			"upper":      stdlib.UpperFunc,
			"lower":      stdlib.LowerFunc,
			"trimspace":  stdlib.TrimSpaceFunc,
			"format":     stdlib.FormatFunc,
			"join":       stdlib.JoinFunc,
			"concat":     stdlib.ConcatFunc,
			"merge":      stdlib.MergeFunc,
			"jsonencode": stdlib.JSONEncodeFunc,
			"jsondecode": stdlib.JSONDecodeFunc,
		},
	}
}

// fileFunc reads a UTF-8 text file and returns its contents.
func fileFunc(baseDir string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "path", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			path := args[0].AsString()
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return cty.UnknownVal(cty.String), fmt.Errorf("failed to read file: %w", err)
			}
			if !utf8.Valid(data) {
				return cty.UnknownVal(cty.String), fmt.Errorf("file %s is not valid UTF-8", path)
			}
			return cty.StringVal(string(data)), nil
		},
	})
}
