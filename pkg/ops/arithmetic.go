package ops

import (
	"math"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/value"
)

func registerArithmetic(r *Registry) {
	r.Register("add", HandlerFunc(opAdd))
	r.Register("sub", HandlerFunc(opSub))
	r.Register("mul", HandlerFunc(opMul))
	r.Register("div", HandlerFunc(opDiv))
	r.Register("pow", HandlerFunc(opPow))
	r.Register("neg", HandlerFunc(opNeg))
	r.Register("abs", HandlerFunc(opAbs))
	r.Register("round", HandlerFunc(opRound))
	r.Register("min", HandlerFunc(opMin))
	r.Register("max", HandlerFunc(opMax))
	r.Register("sum", HandlerFunc(opSum))
	r.Register("avg", HandlerFunc(opAvg))
}

func numArg(args map[string]any, name string) (float64, error) {
	raw, ok := args[name]
	if !ok {
		return 0, alperr.New(alperr.KindType, "missing numeric argument %q", name)
	}
	f, ok := value.Of(raw).Float64()
	if !ok {
		return 0, alperr.New(alperr.KindType, "argument %q is not numeric: %v", name, raw)
	}
	return f, nil
}

func opAdd(args map[string]any, ctx *Context) (any, error) {
	a, err := numArg(args, "a")
	if err != nil {
		return nil, err
	}
	b, err := numArg(args, "b")
	if err != nil {
		return nil, err
	}
	return a + b, nil
}

func opSub(args map[string]any, ctx *Context) (any, error) {
	a, err := numArg(args, "a")
	if err != nil {
		return nil, err
	}
	b, err := numArg(args, "b")
	if err != nil {
		return nil, err
	}
	return a - b, nil
}

func opMul(args map[string]any, ctx *Context) (any, error) {
	a, err := numArg(args, "a")
	if err != nil {
		return nil, err
	}
	b, err := numArg(args, "b")
	if err != nil {
		return nil, err
	}
	return a * b, nil
}

func opDiv(args map[string]any, ctx *Context) (any, error) {
	a, err := numArg(args, "a")
	if err != nil {
		return nil, err
	}
	b, err := numArg(args, "b")
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, alperr.New(alperr.KindMath, "division by zero")
	}
	return a / b, nil
}

func opPow(args map[string]any, ctx *Context) (any, error) {
	a, err := numArg(args, "a")
	if err != nil {
		return nil, err
	}
	b, err := numArg(args, "b")
	if err != nil {
		return nil, err
	}
	return math.Pow(a, b), nil
}

func opNeg(args map[string]any, ctx *Context) (any, error) {
	a, err := numArg(args, "a")
	if err != nil {
		return nil, err
	}
	return -a, nil
}

func opAbs(args map[string]any, ctx *Context) (any, error) {
	a, err := numArg(args, "a")
	if err != nil {
		return nil, err
	}
	return math.Abs(a), nil
}

// opRound rounds away from zero at the boundary (banker's rounding is not
// required), to the optional "ndigits" precision.
func opRound(args map[string]any, ctx *Context) (any, error) {
	a, err := numArg(args, "a")
	if err != nil {
		return nil, err
	}
	ndigits := 0
	if raw, ok := args["ndigits"]; ok {
		n, ok := value.Of(raw).Float64()
		if !ok {
			return nil, alperr.New(alperr.KindType, "ndigits must be numeric")
		}
		ndigits = int(n)
	}
	scale := math.Pow(10, float64(ndigits))
	scaled := a * scale
	rounded := math.Floor(math.Abs(scaled) + 0.5)
	if scaled < 0 {
		rounded = -rounded
	}
	return rounded / scale, nil
}

func numList(args map[string]any, ctx *Context) ([]float64, error) {
	raw, ok := args["items"].([]any)
	if !ok {
		return nil, alperr.New(alperr.KindType, "missing list argument %q", "items")
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		f, ok := value.Of(v).Float64()
		if !ok {
			return nil, alperr.New(alperr.KindType, "items[%d] is not numeric: %v", i, v)
		}
		out[i] = f
	}
	return out, nil
}

func opMin(args map[string]any, ctx *Context) (any, error) {
	items, err := numList(args, ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, alperr.New(alperr.KindOp, "min: empty items")
	}
	m := items[0]
	for _, v := range items[1:] {
		if v < m {
			m = v
		}
	}
	return m, nil
}

func opMax(args map[string]any, ctx *Context) (any, error) {
	items, err := numList(args, ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, alperr.New(alperr.KindOp, "max: empty items")
	}
	m := items[0]
	for _, v := range items[1:] {
		if v > m {
			m = v
		}
	}
	return m, nil
}

func opSum(args map[string]any, ctx *Context) (any, error) {
	items, err := numList(args, ctx)
	if err != nil {
		return nil, err
	}
	var s float64
	for _, v := range items {
		s += v
	}
	return s, nil
}

func opAvg(args map[string]any, ctx *Context) (any, error) {
	items, err := numList(args, ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, alperr.New(alperr.KindOp, "avg: empty items")
	}
	var s float64
	for _, v := range items {
		s += v
	}
	return s / float64(len(items)), nil
}
