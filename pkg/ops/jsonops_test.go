package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpJSONMerge_DeepVsShallow(t *testing.T) {
	ctx, _ := newTestContext()
	objects := []any{
		map[string]any{"a": map[string]any{"b": float64(1)}},
		map[string]any{"a": map[string]any{"c": float64(2)}},
	}

	out, err := ctx.Registry.Invoke("json_merge", map[string]any{"objects": objects, "deep": true}, ctx)
	require.NoError(t, err)
	m := out.(map[string]any)
	a := m["a"].(map[string]any)
	require.Equal(t, float64(1), a["b"])
	require.Equal(t, float64(2), a["c"])

	out, err = ctx.Registry.Invoke("json_merge", map[string]any{"objects": objects, "deep": false}, ctx)
	require.NoError(t, err)
	m = out.(map[string]any)
	a = m["a"].(map[string]any)
	_, hasB := a["b"]
	require.False(t, hasB)
	require.Equal(t, float64(2), a["c"])
}

func TestOpJSONGetSet_DottedPath(t *testing.T) {
	ctx, _ := newTestContext()
	obj := map[string]any{"a": map[string]any{"b": float64(1)}}

	out, err := ctx.Registry.Invoke("json_get", map[string]any{"obj": obj, "path": "a.b"}, ctx)
	require.NoError(t, err)
	require.Equal(t, float64(1), out)

	out, err = ctx.Registry.Invoke("json_set", map[string]any{"obj": obj, "path": "a.c", "value": float64(9)}, ctx)
	require.NoError(t, err)
	m := out.(map[string]any)
	require.Equal(t, float64(9), m["a"].(map[string]any)["c"])
	// original left untouched
	_, hasC := obj["a"].(map[string]any)["c"]
	require.False(t, hasC)
}

func TestOpJSONFilter(t *testing.T) {
	ctx, _ := newTestContext()
	items := []any{float64(1), float64(2), float64(3), float64(4)}
	cond := map[string]any{"gt": []any{"$value", float64(2)}}
	out, err := ctx.Registry.Invoke("json_filter", map[string]any{"items": items, "condition": cond}, ctx)
	require.NoError(t, err)
	require.Equal(t, []any{float64(3), float64(4)}, out)
}

func TestOpJSONDelete(t *testing.T) {
	ctx, _ := newTestContext()
	obj := map[string]any{"a": float64(1), "b": float64(2)}
	out, err := ctx.Registry.Invoke("json_delete", map[string]any{"obj": obj, "path": "a"}, ctx)
	require.NoError(t, err)
	m := out.(map[string]any)
	_, hasA := m["a"]
	require.False(t, hasA)
	require.Equal(t, float64(2), m["b"])
}

func TestOpMapEachViaJSONMap(t *testing.T) {
	ctx, _ := newTestContext()
	ctx.CallFn = func(fnID string, input any) (any, error) {
		f := input.(float64)
		return f * f, nil
	}
	out, err := ctx.Registry.Invoke("json_map", map[string]any{
		"items": []any{float64(1), float64(2), float64(3)},
		"fn":    "square",
	}, ctx)
	require.NoError(t, err)
	require.Equal(t, []any{float64(1), float64(4), float64(9)}, out)
}
