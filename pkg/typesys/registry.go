package typesys

import (
	"reflect"
	"sync"

	"github.com/alp-run/alp/pkg/alperr"
)

// Registry holds every Shape and TypeDef declared by a loaded program. It is
// immutable once the program is loaded and may be shared across concurrent
// invocations; registration takes the write lock and every lookup takes
// the read lock.
type Registry struct {
	mu     sync.RWMutex
	shapes map[string]*Shape
	defs   map[string]*TypeDef
}

// NewRegistry returns an empty Registry ready for registration.
func NewRegistry() *Registry {
	return &Registry{
		shapes: make(map[string]*Shape),
		defs:   make(map[string]*TypeDef),
	}
}

// RegisterShape adds a Shape. Re-registering the same id with an identical
// body is a no-op; a differing body fails with ErrDuplicate.
func (r *Registry) RegisterShape(s *Shape) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.shapes[s.Name]; ok {
		if reflect.DeepEqual(existing, s) {
			return nil
		}
		return alperr.New(alperr.KindDuplicate, "shape %q already registered with a different body", s.Name)
	}
	r.shapes[s.Name] = s
	return nil
}

// RegisterDef adds a TypeDef under the same duplicate-checking rule as
// RegisterShape.
func (r *Registry) RegisterDef(d *TypeDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.defs[d.Name]; ok {
		if reflect.DeepEqual(existing, d) {
			return nil
		}
		return alperr.New(alperr.KindDuplicate, "def %q already registered with a different body", d.Name)
	}
	r.defs[d.Name] = d
	return nil
}

// Shape returns the named Shape, if registered.
func (r *Registry) Shape(name string) (*Shape, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shapes[name]
	return s, ok
}

// Def returns the named TypeDef, if registered.
func (r *Registry) Def(name string) (*TypeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	return d, ok
}

// Has reports whether name is registered as either a Shape or a TypeDef —
// the check a Fn's in/out reference and a union/list element reference use.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.shapes[name]; ok {
		return true
	}
	_, ok := r.defs[name]
	return ok
}

// Len returns the total number of registered shapes and defs, for
// diagnostics (e.g. the CLI's validate summary).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shapes) + len(r.defs)
}
