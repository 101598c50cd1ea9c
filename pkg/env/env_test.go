package env_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/env"
)

func TestResolve_SimpleAndDottedPath(t *testing.T) {
	e := env.New()
	e.Set("in", map[string]any{"x": float64(41), "nested": map[string]any{"y": "hi"}})

	v, err := env.Resolve(e, "$in.x")
	require.NoError(t, err)
	require.Equal(t, float64(41), v)

	v, err = env.Resolve(e, "$in.nested.y")
	require.NoError(t, err)
	require.Equal(t, "hi", v)
}

func TestResolve_EscapedDollar(t *testing.T) {
	e := env.New()
	v, err := env.Resolve(e, "$$literal")
	require.NoError(t, err)
	require.Equal(t, "$literal", v)
}

func TestResolve_NonReferencePassesThrough(t *testing.T) {
	e := env.New()
	v, err := env.Resolve(e, "plain string")
	require.NoError(t, err)
	require.Equal(t, "plain string", v)
}

func TestResolve_MissingBindingIsUnresolved(t *testing.T) {
	e := env.New()
	_, err := env.Resolve(e, "$missing")
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindUnresolved))
}

func TestResolve_MissingIntermediateKeyIsUnresolved(t *testing.T) {
	e := env.New()
	e.Set("in", map[string]any{"a": map[string]any{}})
	_, err := env.Resolve(e, "$in.a.b")
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindUnresolved))
}

func TestResolve_ValueSpecialName(t *testing.T) {
	e := env.New()
	e.SetValue(float64(8))
	v, err := env.Resolve(e, "$value")
	require.NoError(t, err)
	require.Equal(t, float64(8), v)
}

func TestResolveArgs_RecursesThroughContainers(t *testing.T) {
	e := env.New()
	e.Set("in", map[string]any{"x": float64(1)})
	args := map[string]any{
		"a": "$in.x",
		"b": []any{"$in.x", "literal"},
		"c": map[string]any{"nested": "$in.x"},
	}
	out, err := env.ResolveArgs(e, args)
	require.NoError(t, err)
	m := out.(map[string]any)
	require.Equal(t, float64(1), m["a"])
	require.Equal(t, []any{float64(1), "literal"}, m["b"])
	require.Equal(t, float64(1), m["c"].(map[string]any)["nested"])
}
