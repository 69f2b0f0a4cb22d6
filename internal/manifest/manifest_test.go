package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const fooManifest = `
deploymentSpec:
  group1:
    exec-foo:
      container:
        command: ["/bin/sh", "-c"]
        args: ["{{$.inputs.parameters['x']}}"]
        image: "img:tag"
`

func mustLoad(t *testing.T, text string) *Manifest {
	t.Helper()
	m, err := Load(strings.NewReader(text))
	require.NoError(t, err)
	return m
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("keeps every document in order", func(t *testing.T) {
		t.Parallel()
		m := mustLoad(t, "a: 1\n---\nb: 2\n---\nc: 3\n")
		require.Len(t, m.Documents, 3)
		for i, key := range []string{"a", "b", "c"} {
			_, res := m.Documents[i].Get(key)
			require.Equal(t, Found, res, "document %d", i)
		}
	})

	t.Run("empty input yields no documents", func(t *testing.T) {
		t.Parallel()
		m := mustLoad(t, "")
		require.Empty(t, m.Documents)
	})

	t.Run("syntax error is a malformed manifest", func(t *testing.T) {
		t.Parallel()
		_, err := Load(strings.NewReader("a: [1, 2\nb: {"))
		require.ErrorIs(t, err, ErrMalformedManifest)
	})

	t.Run("error names the failing document", func(t *testing.T) {
		t.Parallel()
		_, err := Load(strings.NewReader("ok: true\n---\nbad: [\n"))
		require.ErrorIs(t, err, ErrMalformedManifest)
		require.Contains(t, err.Error(), "document 1")
	})
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fooManifest), 0o600))

	m, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, m.Documents, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNodeDescent(t *testing.T) {
	t.Parallel()

	m := mustLoad(t, `
map:
  nested: value
list: [a, 1, true]
mixed: [a, {b: c}]
nothing: ~
empty: {}
`)
	root := m.Documents[0]

	nested, res := root.Get("map")
	require.Equal(t, Found, res)
	require.Equal(t, "doc[0].map", nested.Path())

	value, res := nested.Get("nested")
	require.Equal(t, Found, res)
	s, res := value.Scalar()
	require.Equal(t, Found, res)
	require.Equal(t, "value", s)

	_, res = value.Get("deeper")
	require.Equal(t, Malformed, res, "descending into a scalar")

	_, res = root.Get("missing")
	require.Equal(t, Absent, res)

	list, _ := root.Get("list")
	items, res := list.Strings()
	require.Equal(t, Found, res)
	require.Equal(t, []string{"a", "1", "true"}, items)

	mixed, _ := root.Get("mixed")
	_, res = mixed.Strings()
	require.Equal(t, Malformed, res)

	nothing, res := root.Get("nothing")
	require.Equal(t, Found, res)
	require.True(t, nothing.IsNull())
	_, res = nothing.Get("x")
	require.Equal(t, Absent, res)

	empty, _ := root.Get("empty")
	require.True(t, empty.IsEmpty())
	require.False(t, empty.IsNull())
}

func TestLocate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		manifest  string
		executor  string
		wantSpec  ContainerSpec
		wantFound bool
		wantErr   error
	}{
		{
			name:      "scenario executor is returned unchanged",
			manifest:  fooManifest,
			executor:  "exec-foo",
			wantFound: true,
			wantSpec: ContainerSpec{
				Image:   "img:tag",
				Command: []string{"/bin/sh", "-c"},
				Args:    []string{"{{$.inputs.parameters['x']}}"},
			},
		},
		{
			name:     "absent executor is recoverable",
			manifest: fooManifest,
			executor: "exec-bar",
		},
		{
			name:     "missing deploymentSpec is fatal",
			manifest: "pipelineInfo:\n  name: p\n",
			executor: "exec-foo",
			wantErr:  ErrNoDeploymentSpec,
		},
		{
			name:     "missing deploymentSpec is fatal for the empty name",
			manifest: "pipelineInfo:\n  name: p\n",
			executor: "",
			wantErr:  ErrNoDeploymentSpec,
		},
		{
			name:     "empty stream has no deploymentSpec",
			manifest: "",
			executor: "exec-foo",
			wantErr:  ErrNoDeploymentSpec,
		},
		{
			name:     "null deploymentSpec counts as absent",
			manifest: "deploymentSpec: ~\n",
			executor: "exec-foo",
			wantErr:  ErrNoDeploymentSpec,
		},
		{
			name: "missing args is incomplete",
			manifest: `
deploymentSpec:
  executors:
    exec-foo:
      container:
        command: [python]
        image: img
`,
			executor: "exec-foo",
			wantErr:  ErrIncompleteContainerSpec,
		},
		{
			name: "missing container is incomplete",
			manifest: `
deploymentSpec:
  executors:
    exec-foo:
      importer: {}
`,
			executor: "exec-foo",
			wantErr:  ErrIncompleteContainerSpec,
		},
		{
			name: "args of the wrong shape is incomplete",
			manifest: `
deploymentSpec:
  executors:
    exec-foo:
      container:
        command: [python]
        args: "--flag"
        image: img
`,
			executor: "exec-foo",
			wantErr:  ErrIncompleteContainerSpec,
		},
		{
			name: "non-mapping group is malformed",
			manifest: `
deploymentSpec:
  executors: [exec-foo]
`,
			executor: "exec-foo",
			wantErr:  ErrMalformedManifest,
		},
		{
			name: "every group is searched",
			manifest: `
deploymentSpec:
  first:
    exec-a:
      container: {command: [a], args: [], image: a}
  second:
    exec-b:
      container: {command: [b], args: ["1", 2], image: b}
`,
			executor:  "exec-b",
			wantFound: true,
			wantSpec:  ContainerSpec{Image: "b", Command: []string{"b"}, Args: []string{"1", "2"}},
		},
		{
			name: "only the first deploymentSpec document is searched",
			manifest: `
deploymentSpec:
  executors:
    exec-a:
      container: {command: [a], args: [], image: a}
---
deploymentSpec:
  executors:
    exec-b:
      container: {command: [b], args: [], image: b}
`,
			executor: "exec-b",
		},
		{
			name: "documents without deploymentSpec are skipped",
			manifest: `
just a string
---
platforms:
  kubernetes: {}
---
deploymentSpec:
  executors:
    exec-a:
      container: {command: [a], args: [x], image: a}
`,
			executor:  "exec-a",
			wantFound: true,
			wantSpec:  ContainerSpec{Image: "a", Command: []string{"a"}, Args: []string{"x"}},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			m := mustLoad(t, tc.manifest)

			// --- Act ---
			spec, found, err := Locate(context.Background(), m, tc.executor)

			// --- Assert ---
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.False(t, found)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantFound, found)
			if diff := cmp.Diff(tc.wantSpec, spec); found && diff != "" {
				t.Errorf("Locate() spec mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLocateIncompleteNamesField(t *testing.T) {
	t.Parallel()

	m := mustLoad(t, `
deploymentSpec:
  executors:
    exec-foo:
      container:
        command: [python]
        args: []
`)
	_, _, err := Locate(context.Background(), m, "exec-foo")

	var containerErr *ContainerError
	require.ErrorAs(t, err, &containerErr)
	require.Equal(t, "exec-foo", containerErr.Executor)
	require.Equal(t, "image", containerErr.Field)
	require.Contains(t, err.Error(), "exec-foo")
}
