package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/ops"
)

func TestOpDiv_ByZeroIsErrMath(t *testing.T) {
	ctx, _ := newTestContext()
	_, err := ctx.Registry.Invoke("div", map[string]any{"a": float64(1), "b": float64(0)}, ctx)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindMath))
}

func TestOpRound_AwayFromZero(t *testing.T) {
	ctx, _ := newTestContext()
	out, err := ctx.Registry.Invoke("round", map[string]any{"a": float64(-2.5)}, ctx)
	require.NoError(t, err)
	require.Equal(t, float64(-3), out)

	out, err = ctx.Registry.Invoke("round", map[string]any{"a": float64(2.344), "ndigits": float64(2)}, ctx)
	require.NoError(t, err)
	require.Equal(t, float64(2.34), out)
}

func TestOpSumAvg(t *testing.T) {
	ctx, _ := newTestContext()
	out, err := ctx.Registry.Invoke("sum", map[string]any{"items": []any{float64(1), float64(2), float64(3)}}, ctx)
	require.NoError(t, err)
	require.Equal(t, float64(6), out)

	out, err = ctx.Registry.Invoke("avg", map[string]any{"items": []any{float64(2), float64(4)}}, ctx)
	require.NoError(t, err)
	require.Equal(t, float64(3), out)
}
