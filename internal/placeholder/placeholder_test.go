package placeholder

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/pipegen/internal/binding"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func mustTable(t *testing.T, bundles map[string]map[string]any) *binding.Table {
	t.Helper()
	table, err := binding.FromGo(bundles)
	require.NoError(t, err)
	return table
}

func TestResolve(t *testing.T) {
	t.Parallel()

	table := mustTable(t, map[string]map[string]any{
		"exec-foo":          {"x": "5", "a": "X"},
		"exec-git-clone-op": {},
	})

	testCases := []struct {
		name     string
		executor string
		in       []string
		want     []string
	}{
		{
			name:     "input parameter becomes a named hole, not the bound value",
			executor: "exec-foo",
			in:       []string{"{{$.inputs.parameters['x']}}"},
			want:     []string{"{exec_foo_x}"},
		},
		{
			name:     "surrounding text is untouched",
			executor: "exec-foo",
			in:       []string{"--repo={{$.inputs.parameters['repo_url']}} --depth 1"},
			want:     []string{"--repo={exec_foo_repo_url} --depth 1"},
		},
		{
			name:     "taxonomy artifact path becomes the path sentinel",
			executor: "exec-git-clone-op",
			in:       []string{"git clone $REPO {{$.outputs.artifacts['taxonomy'].path}}"},
			want:     []string{"git clone $REPO {TAXONOMY_PATH}"},
		},
		{
			name:     "other artifact keys keep their own sentinel",
			executor: "exec-git-clone-op",
			in:       []string{"{{$.outputs.artifacts['processed-data'].path}}"},
			want:     []string{"{PROCESSED_DATA_PATH}"},
		},
		{
			name:     "whole input is the serialized bundle",
			executor: "exec-foo",
			in:       []string{"--executor_input", "{{$}}"},
			want:     []string{"--executor_input", `{"a":"X","x":"5"}`},
		},
		{
			name:     "whole input of an executor without bindings",
			executor: "exec-unbound",
			in:       []string{"{{$}}"},
			want:     []string{"{}"},
		},
		{
			name:     "plain strings pass through",
			executor: "exec-foo",
			in:       []string{"/bin/bash", "-c", "echo {not a placeholder} ${HOME}"},
			want:     []string{"/bin/bash", "-c", "echo {not a placeholder} ${HOME}"},
		},
		{
			name:     "unrelated framework placeholders pass through",
			executor: "exec-foo",
			in:       []string{"{{$.outputs.parameters['Output'].output_file}}"},
			want:     []string{"{{$.outputs.parameters['Output'].output_file}}"},
		},
		{
			name:     "several placeholders in one element",
			executor: "exec-foo",
			in:       []string{"{{$.inputs.parameters['a']}}:{{$.inputs.parameters['x']}}:{{$.outputs.artifacts['model'].path}}"},
			want:     []string{"{exec_foo_a}:{exec_foo_x}:{MODEL_PATH}"},
		},
		{
			name:     "keys may contain brackets",
			executor: "exec-foo",
			in:       []string{"{{$.inputs.parameters['a[0]']}}", "{{$.outputs.artifacts['out{1}'].path}}"},
			want:     []string{"{exec_foo_a[0]}", "{OUT_1__PATH}"},
		},
		{
			name:     "empty input",
			executor: "exec-foo",
			in:       []string{},
			want:     []string{},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewResolver(tc.executor, table).Resolve(tc.in)

			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveDoesNotCrossSubstitute(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	table := mustTable(t, map[string]map[string]any{"exec-foo": {"a": "X"}})
	in := []string{"{{$.inputs.parameters['a']}}", "{{$}}"}

	// --- Act ---
	got, err := NewResolver("exec-foo", table).Resolve(in)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "{exec_foo_a}", got[0])
	require.NotContains(t, got[0], `"a"`)

	var bundle map[string]any
	require.NoError(t, json.Unmarshal([]byte(got[1]), &bundle))
	require.Equal(t, map[string]any{"a": "X"}, bundle)
	require.Equal(t, []string{"{{$.inputs.parameters['a']}}", "{{$}}"}, in, "input must not be mutated")
}

func TestResolveIsIdentityWithoutPlaceholders(t *testing.T) {
	t.Parallel()

	inputs := []string{"", "/bin/sh", "{}", "{{ jinja }}", "{{$", "$.inputs.parameters['x']", "a{{$}b"}
	got, err := NewResolver("exec-foo", nil).Resolve(inputs)
	require.NoError(t, err)
	require.Equal(t, inputs, got)
}

func TestResolveMalformed(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		rule string
	}{
		{name: "double-quoted key", in: `{{$.inputs.parameters["x"]}}`, rule: "input parameter"},
		{name: "unterminated parameter", in: "{{$.inputs.parameters['x']", rule: "input parameter"},
		{name: "empty key", in: "{{$.inputs.parameters['']}}", rule: "input parameter"},
		{name: "artifact without path accessor", in: "{{$.outputs.artifacts['model'].uri}}", rule: "output artifact path"},
		{name: "malformed after a good match", in: "{{$.inputs.parameters['a']}} {{$.inputs.parameters[a]}}", rule: "input parameter"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewResolver("exec-foo", nil).Resolve([]string{"ok", tc.in})

			require.ErrorIs(t, err, ErrMalformedPlaceholder)
			var syntaxErr *SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			require.Equal(t, "exec-foo", syntaxErr.Executor)
			require.Equal(t, 1, syntaxErr.Index)
			require.Equal(t, tc.rule, syntaxErr.Rule)
		})
	}
}

func TestHoles(t *testing.T) {
	t.Parallel()

	table := mustTable(t, map[string]map[string]any{
		"exec-sdg-op": {
			"inputs": map[string]any{
				"parameterValues": map[string]any{"num_instructions_to_generate": 2},
			},
		},
	})
	r := NewResolver("exec-sdg-op", table)

	_, err := r.Resolve([]string{
		"{{$.inputs.parameters['num_instructions_to_generate']}}",
		"{{$.inputs.parameters['repo_pr']}}",
		"{{$.inputs.parameters['num_instructions_to_generate']}}",
	})
	require.NoError(t, err)

	holes := r.Holes()
	require.Len(t, holes, 2)
	require.Equal(t, "exec_sdg_op_num_instructions_to_generate", holes[0].Label)
	require.True(t, holes[0].HasDefault())
	require.True(t, holes[0].Default.Equals(cty.NumberIntVal(2)).True())
	require.Equal(t, "exec_sdg_op_repo_pr", holes[1].Label)
	require.Equal(t, "repo_pr", holes[1].Key)
	require.False(t, holes[1].HasDefault())
}

func TestRuleOrderMatters(t *testing.T) {
	t.Parallel()

	// greedy swallows anything that starts with "{{$", so it only leaves the
	// parameter reference alone when it runs after the parameter rule.
	greedy := Rule{
		Name:    "greedy",
		Pattern: regexp.MustCompile(`\{\{\$[^}]*\}\}`),
		Rewrite: func(Scope, []string) (string, error) { return "WHOLE", nil },
	}
	in := []string{"{{$.inputs.parameters['a']}}{{$}}"}

	got, err := NewResolverWithRules("exec-foo", nil, InputParameterRule(), greedy).Resolve(in)
	require.NoError(t, err)
	require.Equal(t, []string{"{exec_foo_a}WHOLE"}, got)

	got, err = NewResolverWithRules("exec-foo", nil, greedy, InputParameterRule()).Resolve(in)
	require.NoError(t, err)
	require.Equal(t, []string{"WHOLEWHOLE"}, got)
}

func TestIdentifierAndSentinel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "exec_run_mt_bench_op", Identifier("exec-run-mt-bench-op"))
	require.Equal(t, "TAXONOMY_PATH", ArtifactSentinel("taxonomy"))
	require.Equal(t, "MT_BENCH_OUTPUT_PATH", ArtifactSentinel("mt_bench_output"))
	require.Equal(t, "A_B_PATH", ArtifactSentinel("a.b"))
}

func TestCleaner(t *testing.T) {
	t.Parallel()

	cleaner, err := NewCleaner()
	require.NoError(t, err)

	source := "import kfp\n" +
		"from kfp import dsl\n" +
		"from kfp.dsl import *\n" +
		"from typing import *\n" +
		"\n" +
		"def sdg_op(num: int, taxonomy: dsl.Input[dsl.Dataset], sdg: dsl.Output[dsl.Dataset], model: Output[Model]):\n" +
		"    shutil.copytree(taxonomy.path, os.path.join(sdg.path, 'x'))\n" +
		"    print(model.path, pos.path, model.pathlib)\n"

	want := "from typing import *\n" +
		"\n" +
		"def sdg_op(num: int, taxonomy, sdg, model):\n" +
		"    shutil.copytree(taxonomy, os.path.join(sdg, 'x'))\n" +
		"    print(model, pos, model.pathlib)\n"

	got, err := cleaner.Clean(source)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Clean() mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanerNestedAnnotations(t *testing.T) {
	t.Parallel()

	cleaner, err := NewCleaner()
	require.NoError(t, err)

	got, err := cleaner.Clean("def h(x: dsl.Input[List[str]], y: Output[Dict[str, int]], z: dsl.Output[dsl.Artifact]):")

	require.NoError(t, err)
	require.Equal(t, "def h(x, y, z):", got)
}

func TestCleanerReservedIdentifiers(t *testing.T) {
	t.Parallel()

	t.Run("default list only protects os", func(t *testing.T) {
		t.Parallel()
		cleaner, err := NewCleaner()
		require.NoError(t, err)

		got, err := cleaner.CleanAll([]string{"os.path.exists(p)", "sys.path.append(p)", "/bin/sh"})
		require.NoError(t, err)
		require.Equal(t, []string{"os.path.exists(p)", "sys.append(p)", "/bin/sh"}, got)
	})

	t.Run("custom list", func(t *testing.T) {
		t.Parallel()
		cleaner, err := NewCleaner("os", "sys")
		require.NoError(t, err)

		got, err := cleaner.Clean("sys.path.append(x.path)")
		require.NoError(t, err)
		require.Equal(t, "sys.path.append(x)", got)
	})

	t.Run("empty identifier is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := NewCleaner("")
		require.Error(t, err)
	})
}
