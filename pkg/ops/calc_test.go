package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/ops"
)

func TestOpCalcEval_Arithmetic(t *testing.T) {
	ctx, _ := newTestContext()
	out, err := ctx.Registry.Invoke("calc_eval", map[string]any{"expr": "2 + 3 * 4"}, ctx)
	require.NoError(t, err)
	require.Equal(t, float64(14), out)
}

func TestOpCalcEval_PowerSynonym(t *testing.T) {
	ctx, _ := newTestContext()
	out, err := ctx.Registry.Invoke("calc_eval", map[string]any{"expr": "2^10"}, ctx)
	require.NoError(t, err)
	require.Equal(t, float64(1024), out)
}

func TestOpCalcEval_FloorDivision(t *testing.T) {
	ctx, _ := newTestContext()
	out, err := ctx.Registry.Invoke("calc_eval", map[string]any{"expr": "7 // 2"}, ctx)
	require.NoError(t, err)
	require.Equal(t, float64(3), out)
}

func TestOpCalcEval_DivisionByZeroIsErrMath(t *testing.T) {
	ctx, _ := newTestContext()
	_, err := ctx.Registry.Invoke("calc_eval", map[string]any{"expr": "1/0"}, ctx)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindMath))
}

func TestOpCalcEval_RejectsNonArithmeticTokens(t *testing.T) {
	ctx, _ := newTestContext()
	_, err := ctx.Registry.Invoke("calc_eval", map[string]any{"expr": "os.system('x')"}, ctx)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindSyntax))
}
