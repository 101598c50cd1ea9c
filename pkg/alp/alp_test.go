package alp_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/alp"
	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/capability"
	"github.com/alp-run/alp/pkg/replay"
)

func writeProgram(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "program.alp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndRun_AddExpectScenario(t *testing.T) {
	dir := t.TempDir()
	src := `{"@shape": "I", "fields": {"x": "int"}}
{"@shape": "O", "fields": {"y": "int"}}
{"@fn": "f", "@in": "I", "@out": "O", "@op": [["add", {"a": "$in.x", "b": 1}, {"as": "y"}]], "@expect": {"y": "$y"}}
{"@flow": [["f", null, {}]]}
`
	path := writeProgram(t, dir, src)
	cfg := capability.Default()
	cfg.IORoot = dir

	prog, err := alp.Load(path, cfg, "")
	require.NoError(t, err)
	defer prog.Close()

	out, err := prog.Run(map[string]any{"x": float64(41)})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"y": float64(42)}, out)
}

func TestLoadAndRun_RunFnBypassesFlow(t *testing.T) {
	dir := t.TempDir()
	src := `{"@fn": "double", "@op": [["mul", {"a": "$in", "b": 2}]]}
`
	path := writeProgram(t, dir, src)
	cfg := capability.Default()
	cfg.IORoot = dir

	prog, err := alp.Load(path, cfg, "")
	require.NoError(t, err)
	defer prog.Close()

	out, err := prog.RunFn("double", float64(21))
	require.NoError(t, err)
	require.Equal(t, float64(42), out)
}

func TestLoad_GovernanceDeniesWriteFileUnderCriticalPolicy(t *testing.T) {
	dir := t.TempDir()
	src := `{"@fn": "writer", "@op": [["write_file", {"path": "out.txt", "content": "hi"}]]}
`
	path := writeProgram(t, dir, src)
	cfg := capability.Default()
	cfg.IORoot = dir
	cfg.IOAllowWrite = true
	cfg.Governance.Critical = "deny"

	prog, err := alp.Load(path, cfg, "")
	require.NoError(t, err)
	defer prog.Close()

	_, err = prog.RunFn("writer", nil)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindCapability))
}

func TestLoad_TraceFileRecordsRunLifecycle(t *testing.T) {
	dir := t.TempDir()
	src := `{"@fn": "f", "@op": [["add", {"a": "$in", "b": 1}]]}
{"@flow": [["f", null, {}]]}
`
	path := writeProgram(t, dir, src)
	tracePath := filepath.Join(dir, "trace.jsonl")
	cfg := capability.Default()
	cfg.IORoot = dir

	prog, err := alp.Load(path, cfg, tracePath)
	require.NoError(t, err)

	_, err = prog.Run(float64(1))
	require.NoError(t, err)
	require.NoError(t, prog.Close())

	data, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestLoadWithOptions_ReplayModeServesLLMAndToolCallsFromScenario(t *testing.T) {
	dir := t.TempDir()
	src := `{"@shape": "Result", "fields": {"label": "str"}}
{"@fn": "classify", "@llm": {"task": "classify", "input": "$in", "schema": "Result", "as": "r"}, "@expect": {"label": "$r.label"}}
`
	path := writeProgram(t, dir, src)
	cfg := capability.Default()
	cfg.IORoot = dir

	scenario := &replay.Scenario{
		LLMResponses: map[string][]replay.LLMResponse{
			"classify": {{Output: map[string]any{"label": "spam"}}},
		},
	}

	prog, err := alp.LoadWithOptions(path, cfg, alp.Options{Scenario: scenario})
	require.NoError(t, err)
	defer prog.Close()

	out, err := prog.RunFn("classify", "buy now")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"label": "spam"}, out)
}
