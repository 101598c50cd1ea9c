package flow_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/flow"
)

func strp(s string) *string { return &s }

// TestRun_ConditionalBranching mirrors spec.md 8's scenario 3: edges
// [start->pos when value>0] and [start->neg when value<=0].
func TestRun_ConditionalBranching(t *testing.T) {
	f := &flow.Flow{Edges: []flow.Edge{
		{Source: "start", Dest: strp("pos"), When: map[string]any{"gt": []any{"$value", float64(0)}}},
		{Source: "start", Dest: strp("neg"), When: map[string]any{"lte": []any{"$value", float64(0)}}},
	}}

	var visited []string
	call := func(fnID string, in any) (any, error) {
		visited = append(visited, fnID)
		switch fnID {
		case "start":
			return in, nil
		default:
			return in, nil
		}
	}

	out, err := (&flow.Scheduler{Call: call}).Run(f, float64(5))
	require.NoError(t, err)
	require.Equal(t, float64(5), out)
	require.Equal(t, []string{"start", "pos"}, visited)

	visited = nil
	out, err = (&flow.Scheduler{Call: call}).Run(f, float64(-3))
	require.NoError(t, err)
	require.Equal(t, float64(-3), out)
	require.Equal(t, []string{"start", "neg"}, visited)
}

func TestEntryNodes_FirstDeclaredWhenMultiple(t *testing.T) {
	f := &flow.Flow{Edges: []flow.Edge{
		{Source: "a", Dest: strp("c")},
		{Source: "b", Dest: strp("c")},
	}}
	require.Equal(t, []string{"a", "b"}, f.EntryNodes())
}

func TestRun_MultipleEntryNodesOnlyRunsFirstDeclared(t *testing.T) {
	f := &flow.Flow{Edges: []flow.Edge{
		{Source: "a", Dest: strp("c")},
		{Source: "b", Dest: strp("c")},
		{Source: "c", Dest: nil},
	}}
	var visited []string
	sch := &flow.Scheduler{Call: func(fnID string, in any) (any, error) {
		visited = append(visited, fnID)
		return in, nil
	}}
	out, err := sch.Run(f, "in")
	require.NoError(t, err)
	require.Equal(t, "in", out)
	require.Equal(t, []string{"a", "c"}, visited)
}

func TestRun_NullDestinationTerminatesBranch(t *testing.T) {
	f := &flow.Flow{Edges: []flow.Edge{
		{Source: "f", Dest: nil},
	}}
	calls := 0
	call := func(fnID string, in any) (any, error) {
		calls++
		return "done", nil
	}
	out, err := (&flow.Scheduler{Call: call}).Run(f, nil)
	require.NoError(t, err)
	require.Equal(t, "done", out)
	require.Equal(t, 1, calls)
}

func TestRun_CycleExceedsMaxDepthIsErrFlowDepth(t *testing.T) {
	f := &flow.Flow{Edges: []flow.Edge{
		{Source: "a", Dest: strp("b")},
		{Source: "b", Dest: strp("a")},
	}}
	call := func(fnID string, in any) (any, error) { return in, nil }
	_, err := (&flow.Scheduler{Call: call, MaxDepth: 10}).Run(f, nil)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindFlowDepth))
}

func TestRun_MultipleMatchingEdgesAllActivateInOrder(t *testing.T) {
	f := &flow.Flow{Edges: []flow.Edge{
		{Source: "start", Dest: strp("a")},
		{Source: "start", Dest: strp("b")},
	}}
	var visited []string
	call := func(fnID string, in any) (any, error) {
		visited = append(visited, fnID)
		return fnID, nil
	}
	out, err := (&flow.Scheduler{Call: call}).Run(f, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"start", "a", "b"}, visited)
	require.Equal(t, "b", out)
}

func TestRun_PropagatesFnError(t *testing.T) {
	f := &flow.Flow{Edges: []flow.Edge{{Source: "start", Dest: nil}}}
	call := func(fnID string, in any) (any, error) {
		return nil, alperr.New(alperr.KindOp, "boom")
	}
	_, err := (&flow.Scheduler{Call: call}).Run(f, nil)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindOp))
}
