package llm_test

import (
	"context"
	"testing"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/llm"
)

func objectSchema(props map[string]string) *jsonschema.Schema {
	om := orderedmap.New[string, *jsonschema.Schema]()
	for name, typ := range props {
		om.Set(name, &jsonschema.Schema{Type: typ})
	}
	return &jsonschema.Schema{Type: "object", Properties: om}
}

func TestMock_SynthesizesObjectWithAllFields(t *testing.T) {
	schema := objectSchema(map[string]string{"label": "string", "score": "number", "ok": "boolean"})
	out, err := llm.NewMock().Call(context.Background(), "classify", map[string]any{"x": 1}, schema)
	require.NoError(t, err)
	m, ok := out.(map[string]any)
	require.True(t, ok)
	require.Contains(t, m, "label")
	require.Contains(t, m, "score")
	require.Contains(t, m, "ok")
	require.IsType(t, "", m["label"])
	require.IsType(t, float64(0), m["score"])
	require.IsType(t, true, m["ok"])
}

func TestMock_DeterministicForSameInput(t *testing.T) {
	schema := objectSchema(map[string]string{"label": "string"})
	m := llm.NewMock()
	out1, err := m.Call(context.Background(), "classify", map[string]any{"x": 1}, schema)
	require.NoError(t, err)
	out2, err := m.Call(context.Background(), "classify", map[string]any{"x": 1}, schema)
	require.NoError(t, err)
	require.Equal(t, out1, out2)
}

func TestMock_DivergesForDifferentInput(t *testing.T) {
	schema := objectSchema(map[string]string{"label": "string"})
	m := llm.NewMock()
	out1, err := m.Call(context.Background(), "classify", map[string]any{"x": 1}, schema)
	require.NoError(t, err)
	out2, err := m.Call(context.Background(), "classify", map[string]any{"x": 2}, schema)
	require.NoError(t, err)
	require.NotEqual(t, out1, out2)
}

func TestMock_EnumPicksAmongValues(t *testing.T) {
	schema := &jsonschema.Schema{Type: "string", Enum: []any{"a", "b", "c"}}
	out, err := llm.NewMock().Call(context.Background(), "pick", "seed", schema)
	require.NoError(t, err)
	require.Contains(t, []any{"a", "b", "c"}, out)
}
