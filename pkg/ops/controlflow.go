package ops

import (
	"errors"
	"fmt"

	"github.com/alp-run/alp/pkg/alperr"
)

func registerControlFlow(r *Registry) {
	r.Register("if", HandlerFunc(opIf))
	r.Register("switch", HandlerFunc(opSwitch))
	r.Register("try", HandlerFunc(opTry))
}

func asStepList(raw any) ([]Step, error) {
	if raw == nil {
		return nil, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, alperr.New(alperr.KindSyntax, "expected a list of op steps")
	}
	return ParseSteps(arr)
}

func opIf(args map[string]any, ctx *Context) (any, error) {
	cond, ok := args["condition"].(map[string]any)
	if !ok {
		return nil, alperr.New(alperr.KindType, "if requires a mapping argument \"condition\"")
	}
	current, _ := ctx.Env.Get("value")
	matched, err := EvalCondition(cond, current)
	if err != nil {
		return nil, err
	}

	var branch []Step
	if matched {
		branch, err = asStepList(args["then"])
	} else {
		branch, err = asStepList(args["else"])
	}
	if err != nil {
		return nil, err
	}
	if len(branch) == 0 {
		return current, nil
	}
	if err := ExecuteSteps(ctx, ctx.Env, branch); err != nil {
		return nil, err
	}
	v, _ := ctx.Env.Get("value")
	return v, nil
}

// opSwitch matches "value" against each key of "cases" (each a list of op
// steps) by string-normalized equality, falling back to "default" when
// present. Case keys are matched textually since JSON object keys are
// always strings, regardless of the scrutinee's underlying type.
func opSwitch(args map[string]any, ctx *Context) (any, error) {
	scrutinee, ok := args["value"]
	if !ok {
		return nil, alperr.New(alperr.KindType, "switch requires argument \"value\"")
	}
	cases, ok := args["cases"].(map[string]any)
	if !ok {
		return nil, alperr.New(alperr.KindType, "switch requires a mapping argument \"cases\"")
	}

	key := fmt.Sprint(scrutinee)
	var branch []Step
	var err error
	if raw, ok := cases[key]; ok {
		branch, err = asStepList(raw)
	} else if raw, ok := args["default"]; ok {
		branch, err = asStepList(raw)
	} else {
		return nil, alperr.New(alperr.KindOp, "switch: no case matches %v and no default provided", scrutinee)
	}
	if err != nil {
		return nil, err
	}
	if len(branch) == 0 {
		return scrutinee, nil
	}
	if err := ExecuteSteps(ctx, ctx.Env, branch); err != nil {
		return nil, err
	}
	v, _ := ctx.Env.Get("value")
	return v, nil
}

// opTry executes "do", catching any operation error from it and binding it
// under "error" for "catch" to inspect; "finally" always runs, even when
// "do" succeeded or "catch" itself errors.
func opTry(args map[string]any, ctx *Context) (any, error) {
	doSteps, err := asStepList(args["do"])
	if err != nil {
		return nil, err
	}

	doErr := ExecuteSteps(ctx, ctx.Env, doSteps)

	var catchErr error
	if doErr != nil {
		ctx.Env.Set("error", errorToValue(doErr))
		catchSteps, perr := asStepList(args["catch"])
		if perr != nil {
			catchErr = perr
		} else if len(catchSteps) > 0 {
			catchErr = ExecuteSteps(ctx, ctx.Env, catchSteps)
		}
	}

	finallySteps, ferr := asStepList(args["finally"])
	var finallyErr error
	if ferr != nil {
		finallyErr = ferr
	} else if len(finallySteps) > 0 {
		finallyErr = ExecuteSteps(ctx, ctx.Env, finallySteps)
	}

	switch {
	case finallyErr != nil:
		return nil, finallyErr
	case doErr != nil && catchErr != nil:
		return nil, catchErr
	default:
		v, _ := ctx.Env.Get("value")
		return v, nil
	}
}

func errorToValue(err error) map[string]any {
	var ae *alperr.Error
	if errors.As(err, &ae) {
		return map[string]any{"kind": string(ae.Kind), "message": ae.Message}
	}
	return map[string]any{"kind": string(alperr.KindOp), "message": err.Error()}
}
