// Package ops implements the Operation Registry: the dispatch table of
// named handlers (arithmetic, calc_eval, strings, JSON, control flow,
// iteration, and the capability-gated filesystem/HTTP/tool/stdin
// operations) that an @fn body's @op steps invoke.
package ops

import (
	"go.uber.org/zap"

	"github.com/alp-run/alp/pkg/capability"
	"github.com/alp-run/alp/pkg/env"
	"github.com/alp-run/alp/pkg/toolio"
)

// Context is passed into every operation handler. It carries the current
// environment (read-only from the op's perspective — handlers resolve
// arguments against it but bind results only through the step executor),
// the capability gate, structured-logging hooks, and the registry itself
// (so control-flow ops can recurse into ExecuteSteps).
type Context struct {
	Env      *env.Env
	Gate     *capability.Gate
	Log      *zap.Logger
	Registry *Registry
	Tools    *toolio.Manager

	// CallFn invokes a registered Fn by id with an inbound value, used by
	// map_each. It is injected by pkg/fnexec, which owns the Fn registry;
	// ops itself does not depend on fnexec, avoiding an import cycle.
	CallFn func(fnID string, input any) (any, error)

	// Stdin supplies bytes for read_stdin, capped at Gate's configured
	// limit. Injected so tests can substitute a canned reader.
	Stdin func(maxBytes int64) ([]byte, error)
}
