// Package flow implements the Flow Scheduler: traversal of @flow edges
// between functions, evaluating each edge's "when" condition against the
// most recent function output, activating every matching edge in
// declaration order, and following each to completion depth-first before
// the next.
package flow

import (
	"go.uber.org/zap"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/ops"
	"github.com/alp-run/alp/pkg/trace"
)

// DefaultMaxDepth bounds flow recursion against a cyclic edge set that
// never reaches a null destination.
const DefaultMaxDepth = 1024

// Edge is one parsed `[source_fn_id, destination_fn_id_or_null, meta]`
// entry. Dest is nil for a terminal sink.
type Edge struct {
	Source string
	Dest   *string
	When   map[string]any // optional "when" condition; nil means unconditional
}

// Flow is an ordered edge list, in declaration order (the order in which
// multiple matching edges activate, and the tie-break for entry-node
// selection).
type Flow struct {
	Edges []Edge
}

// EntryNodes returns the source ids that never appear as a destination,
// in the order they were first seen as a source — the "first declared"
// entry-node policy spec.md 4.7 mandates.
func (f *Flow) EntryNodes() []string {
	isDest := make(map[string]bool)
	for _, e := range f.Edges {
		if e.Dest != nil {
			isDest[*e.Dest] = true
		}
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range f.Edges {
		if isDest[e.Source] || seen[e.Source] {
			continue
		}
		seen[e.Source] = true
		out = append(out, e.Source)
	}
	return out
}

func (f *Flow) edgesFrom(source string) []Edge {
	var out []Edge
	for _, e := range f.Edges {
		if e.Source == source {
			out = append(out, e)
		}
	}
	return out
}

// CallFn invokes a single function by id, returning its output.
type CallFn func(fnID string, input any) (any, error)

// Scheduler runs a Flow against a function-calling hook.
type Scheduler struct {
	Call     CallFn
	Trace    *trace.Writer
	Log      *zap.Logger
	MaxDepth int
}

// Run executes the flow starting from its first-declared entry node,
// feeding inbound into it and recursing depth-first over every matching
// outgoing edge. Per spec.md 4.7, a flow with more than one entry node
// still runs only the first-declared one; the rest are not invoked.
func (s *Scheduler) Run(f *Flow, inbound any) (any, error) {
	entries := f.EntryNodes()
	if len(entries) == 0 {
		return nil, alperr.New(alperr.KindSyntax, "flow has no entry node: every source also appears as a destination")
	}
	maxDepth := s.MaxDepth
	if maxDepth == 0 {
		maxDepth = DefaultMaxDepth
	}

	return s.traverse(f, entries[0], inbound, 0, maxDepth)
}

func (s *Scheduler) traverse(f *Flow, fnID string, in any, depth, maxDepth int) (any, error) {
	if depth > maxDepth {
		return nil, alperr.New(alperr.KindFlowDepth, "flow exceeded max depth %d at %q", maxDepth, fnID)
	}
	out, err := s.Call(fnID, in)
	if err != nil {
		return nil, err
	}

	edges := f.edgesFrom(fnID)
	result := out
	reachedAny := false
	for _, e := range edges {
		matched, err := s.matches(e, out)
		if err != nil {
			return nil, err
		}
		if s.Trace != nil {
			dest := ""
			if e.Dest != nil {
				dest = *e.Dest
			}
			_ = s.Trace.EmitFlowEdge(e.Source, dest, matched)
		}
		if !matched {
			continue
		}
		reachedAny = true
		if e.Dest == nil {
			continue
		}
		branchOut, err := s.traverse(f, *e.Dest, out, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}
		result = branchOut
	}
	if !reachedAny {
		return out, nil
	}
	return result, nil
}

func (s *Scheduler) matches(e Edge, v any) (bool, error) {
	if e.When == nil {
		return true, nil
	}
	return ops.EvalCondition(e.When, v)
}
