package ops

import (
	"errors"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/env"
)

// Step is a parsed operation step: the `[op_name, argument_object,
// metadata_object?]` triple from an @fn body or an inline then/else/do/
// catch/finally list.
type Step struct {
	Op   string
	Args map[string]any
	As   string // metadata "as": bind the result under this name
}

// ParseStep parses one raw JSON array into a Step.
func ParseStep(raw []any) (Step, error) {
	if len(raw) < 2 || len(raw) > 3 {
		return Step{}, alperr.New(alperr.KindSyntax, "op step must have 2 or 3 elements, got %d", len(raw))
	}
	opName, ok := raw[0].(string)
	if !ok {
		return Step{}, alperr.New(alperr.KindSyntax, "op step's first element must be a string op name")
	}
	args, ok := raw[1].(map[string]any)
	if !ok {
		return Step{}, alperr.New(alperr.KindSyntax, "op step's second element must be an argument mapping")
	}
	step := Step{Op: opName, Args: args}
	if len(raw) == 3 {
		meta, ok := raw[2].(map[string]any)
		if !ok {
			return Step{}, alperr.New(alperr.KindSyntax, "op step's third element must be a metadata mapping")
		}
		if asName, ok := meta["as"].(string); ok {
			if env.Reserved[asName] {
				return Step{}, alperr.New(alperr.KindSyntax, "op step metadata cannot bind reserved name %q", asName)
			}
			step.As = asName
		}
	}
	return step, nil
}

// ParseSteps parses a raw JSON array of op-step triples.
func ParseSteps(raw []any) ([]Step, error) {
	out := make([]Step, len(raw))
	for i, item := range raw {
		arr, ok := item.([]any)
		if !ok {
			return nil, alperr.New(alperr.KindSyntax, "op step %d must be an array", i)
		}
		step, err := ParseStep(arr)
		if err != nil {
			return nil, err
		}
		out[i] = step
	}
	return out, nil
}

// ExecuteSteps runs steps in order against e: resolves each step's
// arguments (recursively, through $-references), invokes the registered
// operation, binds the result under its "as" name if any, and always
// updates $value to the result. Control-flow operations (if/switch/try)
// recurse into this same function for their then/else/do/catch/finally
// bodies, so nested steps share the same binding and $value rules.
func ExecuteSteps(ctx *Context, e *env.Env, steps []Step) error {
	for i, step := range steps {
		if _, err := ExecuteOneStep(ctx, e, step); err != nil {
			var ae *alperr.Error
			if errors.As(err, &ae) {
				return ae.At(ae.Location.NodeID, i)
			}
			return err
		}
	}
	return nil
}

// controlFlowRawKeys lists, per control-flow op, the argument keys holding
// nested op-step lists. Those lists must reach the handler unresolved: they
// are executed against the live environment as it stands at the moment
// each nested step runs (via ExecuteSteps), not pre-resolved against the
// environment as it stood before the control-flow op itself ran.
var controlFlowRawKeys = map[string]map[string]bool{
	"if":     {"then": true, "else": true},
	"switch": {"cases": true, "default": true},
	"try":    {"do": true, "catch": true, "finally": true},
}

// ExecuteOneStep runs a single step and returns its result, binding it the
// same way ExecuteSteps does.
func ExecuteOneStep(ctx *Context, e *env.Env, step Step) (any, error) {
	args, err := resolveStepArgs(e, step)
	if err != nil {
		return nil, err
	}
	result, err := ctx.Registry.Invoke(step.Op, args, ctx)
	if err != nil {
		return nil, err
	}
	if step.As != "" {
		e.Set(step.As, result)
	}
	e.SetValue(result)
	return result, nil
}

func resolveStepArgs(e *env.Env, step Step) (map[string]any, error) {
	rawKeys := controlFlowRawKeys[step.Op]
	if rawKeys == nil {
		resolved, err := env.ResolveArgs(e, step.Args)
		if err != nil {
			return nil, err
		}
		args, ok := resolved.(map[string]any)
		if !ok {
			return nil, alperr.New(alperr.KindSyntax, "resolved arguments for op %q are not a mapping", step.Op)
		}
		return args, nil
	}

	out := make(map[string]any, len(step.Args))
	for k, v := range step.Args {
		if rawKeys[k] {
			out[k] = v
			continue
		}
		rv, err := env.ResolveArgs(e, v)
		if err != nil {
			return nil, err
		}
		out[k] = rv
	}
	return out, nil
}
