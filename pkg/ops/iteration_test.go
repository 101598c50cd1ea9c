package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/ops"
)

func TestOpMapEach_OrderedResultsWithParamWrapping(t *testing.T) {
	ctx, _ := newTestContext()
	var seen []any
	ctx.CallFn = func(fnID string, input any) (any, error) {
		require.Equal(t, "double", fnID)
		m := input.(map[string]any)
		seen = append(seen, m["n"])
		f := m["n"].(float64)
		return f * 2, nil
	}
	args := map[string]any{
		"items": []any{float64(1), float64(2), float64(3)},
		"fn":    "double",
		"param": "n",
	}
	out, err := ctx.Registry.Invoke("map_each", args, ctx)
	require.NoError(t, err)
	require.Equal(t, []any{float64(2), float64(4), float64(6)}, out)
	require.Equal(t, []any{float64(1), float64(2), float64(3)}, seen)
}

func TestOpMapEach_WithoutParamPassesBareItem(t *testing.T) {
	ctx, _ := newTestContext()
	ctx.CallFn = func(fnID string, input any) (any, error) {
		return input, nil
	}
	args := map[string]any{
		"items": []any{"a", "b"},
		"fn":    "identity",
	}
	out, err := ctx.Registry.Invoke("map_each", args, ctx)
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b"}, out)
}

func TestOpMapEach_NoCallFnWiredIsError(t *testing.T) {
	ctx, _ := newTestContext()
	args := map[string]any{
		"items": []any{"a"},
		"fn":    "identity",
	}
	_, err := ctx.Registry.Invoke("map_each", args, ctx)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindOp))
}

func TestOpMapEach_PropagatesFnError(t *testing.T) {
	ctx, _ := newTestContext()
	ctx.CallFn = func(fnID string, input any) (any, error) {
		return nil, alperr.New(alperr.KindOp, "boom")
	}
	args := map[string]any{
		"items": []any{"a"},
		"fn":    "identity",
	}
	_, err := ctx.Registry.Invoke("map_each", args, ctx)
	require.Error(t, err)
}
