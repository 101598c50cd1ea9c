package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/env"
	"github.com/alp-run/alp/pkg/ops"
)

func newTestContext() (*ops.Context, *env.Env) {
	e := env.New()
	return &ops.Context{Env: e, Registry: ops.NewStandardRegistry()}, e
}

func mustParseSteps(t *testing.T, raw []any) []ops.Step {
	t.Helper()
	steps, err := ops.ParseSteps(raw)
	require.NoError(t, err)
	return steps
}

func TestExecuteSteps_BindsAsAndValue(t *testing.T) {
	ctx, e := newTestContext()
	e.Set("n", float64(5))
	steps := mustParseSteps(t, []any{
		[]any{"add", map[string]any{"a": "$n", "b": float64(1)}, map[string]any{"as": "total"}},
	})
	err := ops.ExecuteSteps(ctx, e, steps)
	require.NoError(t, err)
	v, ok := e.Get("total")
	require.True(t, ok)
	require.Equal(t, float64(6), v)
	v, ok = e.Get("value")
	require.True(t, ok)
	require.Equal(t, float64(6), v)
}

func TestExecuteSteps_ReservedAsNameRejected(t *testing.T) {
	_, err := ops.ParseStep([]any{"add", map[string]any{"a": float64(1), "b": float64(2)}, map[string]any{"as": "value"}})
	require.Error(t, err)
}

func TestExecuteSteps_ErrorCarriesOpStepIndex(t *testing.T) {
	ctx, e := newTestContext()
	steps := mustParseSteps(t, []any{
		[]any{"add", map[string]any{"a": float64(1), "b": float64(1)}, map[string]any{"as": "first"}},
		[]any{"div", map[string]any{"a": float64(1), "b": float64(0)}},
	})
	err := ops.ExecuteSteps(ctx, e, steps)
	require.Error(t, err)
	var ae *alperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, 1, ae.Location.OpStep)
}
