package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/loader"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProgram_ShapeDefToolFnFlow(t *testing.T) {
	dir := t.TempDir()
	src := `// a leading comment
{"@shape": "I", "fields": {"x": "int"}}

{"@shape": "O", "fields": {"y": "int"}}
{"@def": "Positive", "base": "int", "min": 0}
{"@tool": "echo_cmd", "kind": "command", "argv": ["echo", "hi"]}
{"@fn": "f", "@in": "I", "@out": "O", "@op": [["add", {"a": "$in.x", "b": 1}, {"as": "y"}]], "@expect": {"y": "$y"}}
{"@flow": [["f", null, {}]]}
`
	path := writeFile(t, dir, "program.alp", src)

	res, err := loader.LoadProgram(path, nil)
	require.NoError(t, err)
	require.True(t, res.Types.Has("I"))
	require.True(t, res.Types.Has("O"))
	require.True(t, res.Types.Has("Positive"))
	fn, ok := res.Fns.Get("f")
	require.True(t, ok)
	require.Equal(t, "I", fn.In)
	require.Equal(t, "O", fn.Out)
	require.Len(t, fn.Steps, 1)
	require.Len(t, res.Flow.Edges, 1)
	require.Equal(t, "f", res.Flow.Edges[0].Source)
	require.Nil(t, res.Flow.Edges[0].Dest)
}

func TestLoadProgram_ImportDeduplicatedByCanonicalPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared.alp", `{"@shape": "Shared", "fields": {"n": "int"}}
`)
	main := writeFile(t, dir, "main.alp", `{"@import": "shared.alp"}
{"@import": "./shared.alp"}
{"@fn": "noop"}
`)

	res, err := loader.LoadProgram(main, nil)
	require.NoError(t, err)
	require.True(t, res.Types.Has("Shared"))
	_, ok := res.Fns.Get("noop")
	require.True(t, ok)
}

func TestLoadProgram_ImportCycleFailsWithErrSyntax(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.alp", `{"@import": "b.alp"}
{"@shape": "A", "fields": {}}
`)
	b := writeFile(t, dir, "b.alp", `{"@import": "a.alp"}
{"@shape": "B", "fields": {}}
`)

	_, err := loader.LoadProgram(b, nil)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindSyntax))
}

func TestLoadProgram_ForwardReferenceToleratedAtLoadTime(t *testing.T) {
	dir := t.TempDir()
	src := `{"@fn": "caller", "@op": [["add", {"a": "$in", "b": 0}]]}
{"@flow": [["caller", "callee", {}], ["callee", null, {}]]}
{"@fn": "callee", "@op": [["add", {"a": "$in", "b": 0}]]}
`
	path := writeFile(t, dir, "fwd.alp", src)

	res, err := loader.LoadProgram(path, nil)
	require.NoError(t, err)
	_, ok := res.Fns.Get("callee")
	require.True(t, ok)
	require.Len(t, res.Flow.Edges, 2)
}

func TestLoadProgram_BlankLinesAndCommentsTolerated(t *testing.T) {
	dir := t.TempDir()
	src := "\n\n// just a comment\n" + `{"@shape": "Only", "fields": {}}` + "\n// trailing\n"
	path := writeFile(t, dir, "blank.alp", src)

	res, err := loader.LoadProgram(path, nil)
	require.NoError(t, err)
	require.True(t, res.Types.Has("Only"))
}

func TestLoadProgram_MalformedLineIsErrSyntax(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.alp", "not json at all\n")

	_, err := loader.LoadProgram(path, nil)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindSyntax))
}

func TestLoadProgram_UnionAndEnumDefs(t *testing.T) {
	dir := t.TempDir()
	src := `{"@def": "StrOrInt", "union": ["str", "int"]}
{"@def": "Color", "enum": ["red", "green", "blue"]}
`
	path := writeFile(t, dir, "defs.alp", src)

	res, err := loader.LoadProgram(path, nil)
	require.NoError(t, err)
	require.True(t, res.Types.Has("StrOrInt"))
	require.True(t, res.Types.Has("Color"))
}
