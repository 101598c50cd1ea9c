package ops

import "github.com/alp-run/alp/pkg/alperr"

// Handler is the single-method capability every operation implements,
// boxed into the registry map — the idiomatic Go replacement for dynamic
// dispatch without an inheritance hierarchy.
type Handler interface {
	Invoke(args map[string]any, ctx *Context) (any, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(args map[string]any, ctx *Context) (any, error)

func (f HandlerFunc) Invoke(args map[string]any, ctx *Context) (any, error) {
	return f(args, ctx)
}

// Registry is the operation name -> handler dispatch table. It is built
// once at startup (NewStandardRegistry) and is immutable and safe for
// concurrent use thereafter.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds name to h, overwriting any previous binding. Used by
// NewStandardRegistry and by embedders extending the operation set.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Lookup returns the handler bound to name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Invoke looks up name and runs it, surfacing ErrOp if unregistered.
func (r *Registry) Invoke(name string, args map[string]any, ctx *Context) (any, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, alperr.New(alperr.KindOp, "operation %q is not registered", name)
	}
	return h.Invoke(args, ctx)
}
