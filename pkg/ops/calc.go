package ops

import (
	"math"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/alp-run/alp/pkg/alperr"
)

// calcCharset is the full character set a restricted arithmetic expression
// may use. Any other character (letters, quotes, brackets, semicolons...)
// is rejected before the expression ever reaches the expr-lang compiler,
// so that no attribute access, function call, or statement injection is
// even representable.
var calcCharset = regexp.MustCompile(`^[0-9.+\-*/%()^\s]+$`)

func registerCalc(r *Registry) {
	r.Register("calc_eval", HandlerFunc(opCalcEval))
}

// calcEnv supplies the two operators (true division, floor division) that
// must raise ErrMath on division by zero instead of producing +Inf/NaN the
// way native float division would.
var calcEnv = map[string]any{
	"calcDiv": func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, errDivZero
		}
		return a / b, nil
	},
	"calcFloorDiv": func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, errDivZero
		}
		return math.Floor(a / b), nil
	},
}

var errDivZero = alperr.New(alperr.KindMath, "division by zero")

func opCalcEval(args map[string]any, ctx *Context) (any, error) {
	exprStr, ok := args["expr"].(string)
	if !ok {
		return nil, alperr.New(alperr.KindType, "calc_eval requires a string \"expr\" argument")
	}
	if !calcCharset.MatchString(exprStr) {
		return nil, alperr.New(alperr.KindSyntax, "calc_eval: %q contains non-arithmetic tokens", exprStr)
	}
	normalized := strings.ReplaceAll(exprStr, "^", "**")

	program, err := expr.Compile(normalized,
		expr.Env(calcEnv),
		expr.Operator("/", "calcDiv"),
		expr.Operator("//", "calcFloorDiv"),
	)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindSyntax, err, "calc_eval: cannot parse %q", exprStr)
	}

	out, err := expr.Run(program, calcEnv)
	if err != nil {
		if alperr.HasKind(err, alperr.KindMath) {
			return nil, err
		}
		return nil, alperr.Wrap(alperr.KindMath, err, "calc_eval: evaluation of %q failed", exprStr)
	}

	f, ok := toFloat(out)
	if !ok {
		return nil, alperr.New(alperr.KindOp, "calc_eval: %q did not produce a number", exprStr)
	}
	return f, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
