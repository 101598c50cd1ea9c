package ops

// NewStandardRegistry builds a Registry with every built-in operation
// (arithmetic, calc_eval, strings, JSON, control flow, iteration, and the
// capability-gated filesystem/HTTP/tool/stdin operations) registered.
func NewStandardRegistry() *Registry {
	r := NewRegistry()
	registerArithmetic(r)
	registerCalc(r)
	registerStrings(r)
	registerJSON(r)
	registerControlFlow(r)
	registerIteration(r)
	registerSandboxed(r)
	return r
}
