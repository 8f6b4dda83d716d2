package wasm

// Engine compiles function instances into an executable form and runs them.
// Implementations must allow Call to be invoked concurrently for the same
// compiled function from multiple goroutines.
type Engine interface {
	// Compile prepares f for execution. It must complete, and publish its
	// result, before the first Call for f. Compiling the same function twice
	// is a no-op. Host functions compile trivially.
	//
	// The body must already be validated; Compile reports malformed input it
	// happens to notice but does not re-validate.
	Compile(f *FunctionInstance) error

	// Call invokes a compiled function with the given parameters and returns
	// its results. Traps surface as errors wrapping the ErrRuntime* values.
	Call(f *FunctionInstance, params ...uint64) (results []uint64, err error)
}
