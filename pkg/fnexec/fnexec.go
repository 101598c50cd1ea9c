// Package fnexec implements the Function Executor: seeds an @fn's
// environment from its inbound value and @const block, runs its @op steps
// sequentially, optionally invokes an @llm call, projects the result
// through @expect, validates against the declared output shape, and wraps
// the whole attempt in the @retry policy.
package fnexec

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/capability"
	"github.com/alp-run/alp/pkg/env"
	"github.com/alp-run/alp/pkg/llm"
	"github.com/alp-run/alp/pkg/ops"
	"github.com/alp-run/alp/pkg/toolio"
	"github.com/alp-run/alp/pkg/trace"
	"github.com/alp-run/alp/pkg/typesys"
)

// DefaultLLMTimeout is the spec.md 5 default blocking-operation timeout
// applied to an @llm call when the Executor does not override it.
const DefaultLLMTimeout = 30 * time.Second

// LLMSpec is a parsed @llm call specification.
type LLMSpec struct {
	Task   string
	Input  any    // raw; resolved against the fn's environment at call time
	Schema string // shape/typedef name the call's result is validated against
	As     string // binding name for the result; defaults to "llm"
}

// RetrySpec is a parsed @retry policy.
type RetrySpec struct {
	MaxAttempts int
	BackoffMS   int
	On          []alperr.Kind
}

// Fn is a parsed @fn node.
type Fn struct {
	ID     string
	In     string // input shape/typedef reference; empty accepts any value
	Out    string // output shape/typedef reference; empty skips validation
	Const  map[string]any
	Steps  []ops.Step
	LLM    *LLMSpec
	Expect map[string]any // output field name -> raw reference expression
	Retry  *RetrySpec
}

// Registry holds every loaded Fn, keyed by id.
type Registry struct {
	fns map[string]*Fn
}

// NewRegistry returns an empty Fn registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]*Fn)}
}

// Register adds fn, failing with ErrDuplicate if its id is already taken.
func (r *Registry) Register(fn *Fn) error {
	if _, exists := r.fns[fn.ID]; exists {
		return alperr.New(alperr.KindDuplicate, "fn %q already registered", fn.ID)
	}
	r.fns[fn.ID] = fn
	return nil
}

// Get looks up a registered Fn by id.
func (r *Registry) Get(id string) (*Fn, bool) {
	fn, ok := r.fns[id]
	return fn, ok
}

// IDs returns every registered fn id, sorted, for diagnostics and the
// explain CLI command.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.fns))
	for id := range r.fns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Executor runs Fn invocations against the shared, load-time-immutable
// registries (types, ops, tools) plus the per-run capability gate, logger,
// trace writer, LLM adapter, and stdin hook.
type Executor struct {
	Fns   *Registry
	Types *typesys.Registry
	Ops   *ops.Registry
	Gate  *capability.Gate
	Log   *zap.Logger
	Tools *toolio.Manager
	LLM   llm.Adapter
	Trace *trace.Writer
	Stdin func(maxBytes int64) ([]byte, error)

	// LLMTimeout bounds each @llm call; zero means DefaultLLMTimeout.
	LLMTimeout time.Duration
}

// Execute runs the named fn against inbound value v, applying its @retry
// policy (if declared) around repeated attempts.
func (ex *Executor) Execute(fnID string, v any) (any, error) {
	fn, ok := ex.Fns.Get(fnID)
	if !ok {
		return nil, alperr.New(alperr.KindUnresolved, "fn %q is not registered", fnID)
	}
	if ex.Trace != nil {
		_ = ex.Trace.EmitFnEnter(fnID, v)
	}
	if ex.Log != nil {
		ex.Log.Info("fn enter", zap.String("fn", fnID))
	}
	out, err := ex.runWithRetry(fn, v)
	if ex.Trace != nil {
		_ = ex.Trace.EmitFnExit(fnID, out, err)
	}
	if ex.Log != nil {
		if err != nil {
			ex.Log.Error("fn exit", zap.String("fn", fnID), zap.Error(err))
		} else {
			ex.Log.Info("fn exit", zap.String("fn", fnID))
		}
	}
	return out, err
}

func (ex *Executor) runWithRetry(fn *Fn, v any) (any, error) {
	maxAttempts := 1
	if fn.Retry != nil && fn.Retry.MaxAttempts > 0 {
		maxAttempts = fn.Retry.MaxAttempts
	}

	var lastErr error
	exhausted := false
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := ex.runOnce(fn, v)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if fn.Retry == nil || !retryable(fn.Retry, err) {
			break
		}
		if attempt == maxAttempts {
			exhausted = true
			break
		}
		backoff := time.Duration(fn.Retry.BackoffMS) * time.Millisecond * time.Duration(uint(1)<<uint(attempt-1))
		if ex.Trace != nil {
			_ = ex.Trace.EmitRetryAttempt(fn.ID, attempt, maxAttempts, backoff, err)
		}
		time.Sleep(backoff)
	}
	if exhausted && maxAttempts > 1 {
		return nil, alperr.Wrap(alperr.KindRetryExhausted, lastErr, "fn %q exhausted %d attempts", fn.ID, maxAttempts)
	}
	return nil, lastErr
}

// retryable reports whether err's kind is named in the retry policy's "on"
// list. ErrType is excluded unless explicitly listed, per spec.md 4.6's
// "validation errors are not retried by default".
func retryable(r *RetrySpec, err error) bool {
	kind, ok := alperr.KindOf(err)
	if !ok {
		return false
	}
	for _, k := range r.On {
		if k == kind {
			return true
		}
	}
	return false
}

func (ex *Executor) runOnce(fn *Fn, v any) (any, error) {
	e := env.New()
	if err := bindConsts(e, fn.Const); err != nil {
		return nil, err
	}

	inVal := v
	if fn.In != "" {
		validated, err := typesys.Validate(ex.Types, fn.In, v)
		if err != nil {
			return nil, err
		}
		inVal = validated
	}
	e.Set("in", inVal)
	e.SetValue(inVal)

	opsCtx := &ops.Context{
		Env:      e,
		Gate:     ex.Gate,
		Log:      ex.Log,
		Registry: ex.Ops,
		Tools:    ex.Tools,
		CallFn:   ex.Execute,
		Stdin:    ex.Stdin,
	}
	if err := ex.runSteps(opsCtx, e, fn.ID, fn.Steps); err != nil {
		return nil, err
	}

	if fn.LLM != nil {
		if err := ex.runLLM(e, fn); err != nil {
			return nil, err
		}
	}

	result, err := ex.project(e, fn)
	if err != nil {
		return nil, err
	}

	if fn.Out != "" {
		validated, err := typesys.Validate(ex.Types, fn.Out, result)
		if err != nil {
			return nil, err
		}
		return validated, nil
	}
	return result, nil
}

// bindConsts resolves @const entries in sorted-key order (the declaration's
// own map has no caller scope to draw from, so binding order only matters
// for constants that reference earlier constants) and binds each.
func bindConsts(e *env.Env, consts map[string]any) error {
	keys := make([]string, 0, len(consts))
	for k := range consts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rv, err := env.ResolveArgs(e, consts[k])
		if err != nil {
			return err
		}
		e.Set(k, rv)
	}
	return nil
}

// runSteps mirrors ops.ExecuteSteps but additionally emits a trace event
// per step, a concern the ops package itself does not own.
func (ex *Executor) runSteps(ctx *ops.Context, e *env.Env, fnID string, steps []ops.Step) error {
	for i, step := range steps {
		_, err := ops.ExecuteOneStep(ctx, e, step)
		if ex.Trace != nil {
			_ = ex.Trace.EmitOpStep(fnID, i, step.Op, step.Args, err)
		}
		if err != nil {
			var ae *alperr.Error
			if errors.As(err, &ae) {
				return ae.At(fnID, i)
			}
			return err
		}
	}
	return nil
}

func (ex *Executor) runLLM(e *env.Env, fn *Fn) error {
	spec := fn.LLM
	input, err := env.ResolveArgs(e, spec.Input)
	if err != nil {
		return err
	}
	schema, err := typesys.ExportSchema(ex.Types, spec.Schema)
	if err != nil {
		return err
	}

	timeout := ex.LLMTimeout
	if timeout == 0 {
		timeout = DefaultLLMTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, callErr := ex.LLM.Call(ctx, spec.Task, input, schema)
	if ex.Trace != nil {
		_ = ex.Trace.EmitLLMCall(fn.ID, spec.Task, spec.Schema, callErr)
	}
	if callErr != nil {
		return callErr
	}

	validated, err := typesys.Validate(ex.Types, spec.Schema, result)
	if err != nil {
		return err
	}
	asName := spec.As
	if asName == "" {
		asName = "llm"
	}
	e.Set(asName, validated)
	e.SetValue(validated)
	return nil
}

func (ex *Executor) project(e *env.Env, fn *Fn) (any, error) {
	if fn.Expect == nil {
		v, _ := e.Get(env.ValueName)
		return v, nil
	}
	out := make(map[string]any, len(fn.Expect))
	for field, expr := range fn.Expect {
		rv, err := env.ResolveArgs(e, expr)
		if err != nil {
			return nil, err
		}
		out[field] = rv
	}
	return out, nil
}
