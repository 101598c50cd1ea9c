// Package alperr defines the discriminated error kinds shared across the
// ALP kernel, modeled on the "exceptions for control flow -> result types"
// principle: every failure is a typed value, never a panic or a bare string.
package alperr

import (
	"errors"
	"fmt"
)

// Kind discriminates the class of failure a kernel component reports.
type Kind string

const (
	KindSyntax         Kind = "ErrSyntax"
	KindType           Kind = "ErrType"
	KindUnresolved     Kind = "ErrUnresolved"
	KindDuplicate      Kind = "ErrDuplicate"
	KindMath           Kind = "ErrMath"
	KindOp             Kind = "ErrOp"
	KindCapability     Kind = "ErrCapability"
	KindIO             Kind = "ErrIO"
	KindHTTP           Kind = "ErrHTTP"
	KindTool           Kind = "ErrTool"
	KindLLM            Kind = "ErrLLM"
	KindTimeout        Kind = "ErrTimeout"
	KindCancelled      Kind = "ErrCancelled"
	KindFlowDepth      Kind = "ErrFlowDepth"
	KindRetryExhausted Kind = "ErrRetryExhausted"
)

// Location pins an error to a source position within a loaded program.
type Location struct {
	NodeID string
	OpStep int // -1 when not applicable
}

// Error is the kernel's single error type. It always carries a Kind so
// callers can discriminate with errors.As and a retry policy can decide
// whether to re-attempt without string-matching messages.
type Error struct {
	Kind     Kind
	Message  string
	Location Location
	Cause    error
}

func (e *Error) Error() string {
	if e.Location.NodeID != "" {
		if e.Location.OpStep >= 0 {
			return fmt.Sprintf("%s: %s (at %s op[%d])", e.Kind, e.Message, e.Location.NodeID, e.Location.OpStep)
		}
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, e.Location.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports equality by Kind, so errors.Is(err, alperr.New(KindMath, "")) works
// for callers that only care about the class of failure.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New creates an Error with no location, suitable for wrapping at the call site.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that chains a cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// At returns a copy of e annotated with a source location.
func (e *Error) At(nodeID string, opStep int) *Error {
	out := *e
	out.Location = Location{NodeID: nodeID, OpStep: opStep}
	return &out
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, with ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// HasKind reports whether err's chain contains an *Error of the given kind.
func HasKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
