// Package env implements the per-invocation Environment and its
// $-reference resolver: a scoped name->value table plus recursive
// resolution of $-prefixed dotted-path references embedded in operation
// arguments.
package env

import (
	"strings"

	"github.com/alp-run/alp/pkg/alperr"
)

// ValueName is the reserved binding holding the most recent step's result,
// accessed as "$value".
const ValueName = "value"

// Reserved names an op-step metadata binding must never shadow.
var Reserved = map[string]bool{
	"in":     true,
	"out":    true,
	ValueName: true,
}

// Env is a function invocation's name->value scope. It is not safe for
// concurrent use; each invocation owns one exclusively.
type Env struct {
	vars map[string]any
}

// New returns an empty Environment.
func New() *Env {
	return &Env{vars: make(map[string]any)}
}

// Set binds name to v, overwriting any previous binding.
func (e *Env) Set(name string, v any) {
	e.vars[name] = v
}

// Get returns the binding for name.
func (e *Env) Get(name string) (any, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// SetValue updates the reserved "$value" binding to the most recent step's
// result.
func (e *Env) SetValue(v any) {
	e.vars[ValueName] = v
}

// Snapshot returns a flat copy of the environment's bindings, used for
// `explain` step snapshots and the trace writer.
func (e *Env) Snapshot() map[string]any {
	out := make(map[string]any, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}

// Resolve resolves a single $-reference token: "$name" looks up name in the
// environment; "$name.a.b" follows dotted-path mapping lookups from there;
// "$$..." is the escape producing the literal string "$...". Tokens not
// starting with "$" are returned unchanged.
func Resolve(e *Env, token string) (any, error) {
	if !strings.HasPrefix(token, "$") {
		return token, nil
	}
	if strings.HasPrefix(token, "$$") {
		return "$" + token[2:], nil
	}
	path := token[1:]
	if path == "" {
		return nil, alperr.New(alperr.KindUnresolved, "empty reference %q", token)
	}
	parts := strings.Split(path, ".")
	root := parts[0]
	cur, ok := e.Get(root)
	if !ok {
		return nil, alperr.New(alperr.KindUnresolved, "unresolved reference %q: %q is not bound", token, root)
	}
	for _, part := range parts[1:] {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, alperr.New(alperr.KindUnresolved, "unresolved reference %q: %q is not a mapping", token, part)
		}
		next, ok := m[part]
		if !ok {
			return nil, alperr.New(alperr.KindUnresolved, "unresolved reference %q: missing key %q", token, part)
		}
		cur = next
	}
	return cur, nil
}

// ResolveArgs recursively resolves $-references embedded anywhere within an
// argument value: scalars that look like references are substituted,
// sequences and mappings are walked element-wise, and everything else
// passes through unchanged.
func ResolveArgs(e *Env, v any) (any, error) {
	switch t := v.(type) {
	case string:
		return Resolve(e, t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			rv, err := ResolveArgs(e, item)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			rv, err := ResolveArgs(e, item)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}
