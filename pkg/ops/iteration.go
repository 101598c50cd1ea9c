package ops

import "github.com/alp-run/alp/pkg/alperr"

func registerIteration(r *Registry) {
	r.Register("map_each", HandlerFunc(opMapEach))
}

// opMapEach applies the Fn named by "fn" to every element of "items" in
// order, collecting the results into a list. When "param" is given, each
// item is wrapped as {param: item} before being passed to the Fn, so the
// Fn can name its input field instead of receiving the bare item; without
// it, the item itself is passed as the Fn's input.
func opMapEach(args map[string]any, ctx *Context) (any, error) {
	items, ok := args["items"].([]any)
	if !ok {
		return nil, alperr.New(alperr.KindType, "map_each requires a list argument \"items\"")
	}
	fnID, err := strArg(args, "fn")
	if err != nil {
		return nil, err
	}
	if ctx.CallFn == nil {
		return nil, alperr.New(alperr.KindOp, "map_each: no function executor is wired into this context")
	}
	param, _ := args["param"].(string)

	out := make([]any, len(items))
	for i, item := range items {
		var input any = item
		if param != "" {
			input = map[string]any{param: item}
		}
		result, err := ctx.CallFn(fnID, input)
		if err != nil {
			return nil, err
		}
		out[i] = result
	}
	return out, nil
}
