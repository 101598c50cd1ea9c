// Package alp wires the loader, type/operation/tool/fn registries, flow
// scheduler, capability gate, logger, trace writer, LLM adapter, and
// risk-tiered governance into a single runnable Program, mirroring
// spec.md section 3's "every component shares one capability gate and one
// environment resolver" requirement at the composition root.
package alp

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alp-run/alp/pkg/alog"
	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/capability"
	"github.com/alp-run/alp/pkg/flow"
	"github.com/alp-run/alp/pkg/fnexec"
	"github.com/alp-run/alp/pkg/governance"
	"github.com/alp-run/alp/pkg/llm"
	"github.com/alp-run/alp/pkg/loader"
	"github.com/alp-run/alp/pkg/ops"
	"github.com/alp-run/alp/pkg/replay"
	"github.com/alp-run/alp/pkg/toolio"
	"github.com/alp-run/alp/pkg/trace"
	"github.com/alp-run/alp/pkg/typesys"
)

// governedOps names every built-in operation whose Contract has side
// effects, for the governance decoration pass. Pure operations (arithmetic,
// strings, json, control flow, iteration, calc_eval) are never decorated,
// so no policy applies to them, not even one that maps the low tier to
// deny.
var governedOps = map[string]governance.Contract{
	"read_file":  {SideEffects: true, Deterministic: true, Idempotent: true},
	"write_file": {SideEffects: true, Deterministic: false, Idempotent: false},
	"http":       {SideEffects: true, Deterministic: false, Idempotent: false},
	"tool_call":  {SideEffects: true, Deterministic: false, Idempotent: false},
	"read_stdin": {SideEffects: true, Deterministic: false, Idempotent: true},
}

// Program is a fully loaded, ready-to-run ALP program.
type Program struct {
	Path  string
	Types *typesys.Registry
	Ops   *ops.Registry
	Tools *toolio.Manager
	Fns   *fnexec.Registry
	Flow  *flow.Flow

	Gate  *capability.Gate
	Log   *zap.Logger
	Trace *trace.Writer

	exec *fnexec.Executor
	sch  *flow.Scheduler
}

// Options configures Load beyond (path, cfg). The zero value disables
// tracing and runs against live tool/LLM transports.
type Options struct {
	// TracePath, if non-empty, enables JSONL audit-trail emission to this
	// file for the lifetime of the Program.
	TracePath string

	// Scenario, if non-nil, puts the Program in replay mode: every
	// tool_call and @llm invocation is served from canned responses
	// instead of a live transport, per SPEC_FULL.md 4.13.
	Scenario *replay.Scenario
}

// Load reads cfg-governed configuration, builds every registry by loading
// path (and its transitive @import graph), and returns a Program ready to
// Run. tracePath may be empty to disable trace emission.
func Load(path string, cfg capability.Config, tracePath string) (*Program, error) {
	return LoadWithOptions(path, cfg, Options{TracePath: tracePath})
}

// LoadWithOptions is Load with replay-mode support; see Options.
func LoadWithOptions(path string, cfg capability.Config, opts Options) (*Program, error) {
	gate, err := capability.NewGate(cfg)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindCapability, err, "build capability gate")
	}

	res, err := loader.LoadProgram(path, gate)
	if err != nil {
		return nil, err
	}

	var adapter llm.Adapter
	if opts.Scenario != nil {
		res.Tools.UseReplay(replay.NewExecutor(opts.Scenario))
		adapter = replay.NewLLM(opts.Scenario)
	} else {
		adapter, err = llm.New(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tr *trace.Writer
	if opts.TracePath != "" {
		tr, err = trace.NewFileWriter(opts.TracePath, uuid.NewString())
		if err != nil {
			return nil, alperr.Wrap(alperr.KindIO, err, "open trace file %q", opts.TracePath)
		}
	}
	applyGovernance(res.Ops, cfg.Governance, tr)

	log := alog.New(cfg.LogLevel, cfg.Explain)

	exec := &fnexec.Executor{
		Fns:   res.Fns,
		Types: res.Types,
		Ops:   res.Ops,
		Gate:  gate,
		Log:   log,
		Tools: res.Tools,
		LLM:   adapter,
		Trace: tr,
	}
	sch := &flow.Scheduler{Call: exec.Execute, Trace: tr, Log: log}

	return &Program{
		Path:  path,
		Types: res.Types,
		Ops:   res.Ops,
		Tools: res.Tools,
		Fns:   res.Fns,
		Flow:  res.Flow,
		Gate:  gate,
		Log:   log,
		Trace: tr,
		exec:  exec,
		sch:   sch,
	}, nil
}

// Run executes the program's flow to completion, feeding inbound into its
// entry node(s). Exit-code mapping (spec.md section 6) is the CLI layer's
// concern; Run only returns the outbound value or the first propagated
// error.
func (p *Program) Run(inbound any) (any, error) {
	start := time.Now()
	if p.Trace != nil {
		_ = p.Trace.EmitRunStart(p.Path, inbound)
	}
	out, err := p.sch.Run(p.Flow, inbound)
	if p.Trace != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		_ = p.Trace.EmitRunComplete(status, time.Since(start), out, err)
	}
	return out, err
}

// RunFn invokes a single registered fn directly, bypassing flow traversal —
// the entry point spec.md section 8's scenario examples exercise one fn at
// a time through.
func (p *Program) RunFn(fnID string, inbound any) (any, error) {
	return p.exec.Execute(fnID, inbound)
}

// Close releases the program's trace file and any live tool connections
// (MCP/JSON-RPC subprocesses).
func (p *Program) Close() error {
	var firstErr error
	if p.Tools != nil {
		p.Tools.Close()
	}
	if p.Trace != nil {
		if err := p.Trace.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// applyGovernance decorates every side-effecting built-in operation so
// that, before running, its risk tier is evaluated against policy. A
// RiskLevel the policy maps to "deny" fails with ErrCapability; one mapped
// to "require-approval" also fails with ErrCapability, since this kernel
// has no interactive approval channel. A Program is either trusted to run
// a risk tier unattended (policy "allow") or it is not run at all.
// ActionAllow (the default for an unconfigured policy, per
// governance.Evaluate) is a no-op passthrough.
func applyGovernance(reg *ops.Registry, policy capability.GovernanceConfig, tr *trace.Writer) {
	for name, contract := range governedOps {
		h, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		reg.Register(name, governedHandler{name: name, contract: contract, policy: policy, trace: tr, inner: h})
	}
}

type governedHandler struct {
	name     string
	contract governance.Contract
	policy   capability.GovernanceConfig
	trace    *trace.Writer
	inner    ops.Handler
}

func (g governedHandler) Invoke(args map[string]any, ctx *ops.Context) (any, error) {
	decision := governance.Evaluate(g.contract, g.policy)
	if g.trace != nil {
		_ = g.trace.EmitCapabilityDecision(string(decision.RiskLevel), g.name, decision.Action == governance.ActionAllow)
	}
	if decision.Action != governance.ActionAllow {
		return nil, alperr.New(alperr.KindCapability, "operation %q denied by governance policy (risk=%s, action=%s)", g.name, decision.RiskLevel, decision.Action)
	}
	return g.inner.Invoke(args, ctx)
}
