package treevm

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/wasmtree/wasmtree/internal/buildoptions"
	"github.com/wasmtree/wasmtree/wasm"
)

var callStackCeiling = buildoptions.CallStackCeiling

type (
	// engine implements wasm.Engine on the block trees built by the scanner.
	// The compiled function map is the only shared state, so any number of
	// goroutines can call into the same engine at once.
	engine struct {
		mux               sync.RWMutex
		compiledFunctions map[*wasm.FunctionInstance]*compiledFunction
	}

	// compiledFunction ties a function instance to its scanned block tree and
	// the operand stack size its frames need. Host functions have a nil root.
	compiledFunction struct {
		source         *wasm.FunctionInstance
		root           *block
		maxStackHeight int
	}

	// frame is one native activation: the function, its locals with the
	// parameters at the front, and its own operand stack.
	frame struct {
		f      *wasm.FunctionInstance
		locals []uint64
		stack  []uint64
	}

	// callEngine holds the frames of a single exported call. Each Call
	// creates a fresh one, which keeps invocations independent.
	callEngine struct {
		engine *engine
		frames []*frame
	}
)

// NewEngine creates an engine executing functions as trees of blocks over
// the original bytecode.
func NewEngine() wasm.Engine {
	return &engine{compiledFunctions: map[*wasm.FunctionInstance]*compiledFunction{}}
}

func (e *engine) Compile(f *wasm.FunctionInstance) error {
	e.mux.Lock()
	defer e.mux.Unlock()
	if _, ok := e.compiledFunctions[f]; ok {
		return nil
	}
	if f.IsHost() {
		e.compiledFunctions[f] = &compiledFunction{source: f}
		return nil
	}
	root, maxStackHeight, err := scanFunction(f)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", f.Name, err)
	}
	e.compiledFunctions[f] = &compiledFunction{source: f, root: root, maxStackHeight: maxStackHeight}
	return nil
}

func (e *engine) getCompiledFunction(f *wasm.FunctionInstance) *compiledFunction {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.compiledFunctions[f]
}

func (e *engine) Call(f *wasm.FunctionInstance, params ...uint64) (results []uint64, err error) {
	if e.getCompiledFunction(f) == nil {
		return nil, fmt.Errorf("function not compiled")
	}

	ce := &callEngine{engine: e}
	defer func() {
		if v := recover(); v != nil {
			if buildoptions.IsDebugMode {
				debug.PrintStack()
			}
			traces := make([]string, len(ce.frames))
			for i := 0; i < len(traces); i++ {
				fr := ce.frames[len(ce.frames)-1-i]
				traces[i] = fmt.Sprintf("\t%d: %s", i, fr.f.Name)
			}
			ce.frames = ce.frames[:0]

			err2, ok := v.(error)
			if ok {
				if err2.Error() == "runtime error: integer divide by zero" {
					err2 = wasm.ErrRuntimeIntegerDivideByZero
				}
				err = fmt.Errorf("wasm runtime error: %w", err2)
			} else {
				err = fmt.Errorf("wasm runtime error: %v", v)
			}

			if len(traces) > 0 {
				err = fmt.Errorf("%w\nwasm backtrace:\n%s", err, strings.Join(traces, "\n"))
			}
		}
	}()
	results = ce.call(f, params...)
	return
}

// call runs one function and returns its results. Traps propagate as panics
// until the deferred handler in Call turns them into errors.
func (ce *callEngine) call(f *wasm.FunctionInstance, params ...uint64) []uint64 {
	if callStackCeiling <= len(ce.frames) {
		panic(wasm.ErrRuntimeCallStackOverflow)
	}
	compiled := ce.engine.getCompiledFunction(f)
	if compiled == nil {
		panic(fmt.Errorf("function %s not compiled", f.Name))
	}
	if f.IsHost() {
		return ce.callHostFunc(f, params...)
	}
	return ce.callNativeFunc(compiled, params...)
}

// callHostFunc pushes a frame without a stack so the backtrace includes the
// host function, then hands the parameters to the Go implementation.
func (ce *callEngine) callHostFunc(f *wasm.FunctionInstance, params ...uint64) []uint64 {
	ce.frames = append(ce.frames, &frame{f: f})
	var callerModule *wasm.ModuleInstance
	if n := len(ce.frames); n >= 2 {
		callerModule = ce.frames[n-2].f.ModuleInstance
	}
	results, err := f.HostFunction(callerModule, params...)
	if err != nil {
		panic(err)
	}
	ce.frames = ce.frames[:len(ce.frames)-1]
	return results
}

func (ce *callEngine) callNativeFunc(compiled *compiledFunction, params ...uint64) []uint64 {
	f := compiled.source
	fr := &frame{
		f:      f,
		locals: make([]uint64, len(f.FunctionType.Params)+len(f.LocalTypes)),
		stack:  make([]uint64, compiled.maxStackHeight),
	}
	copy(fr.locals, params)
	ce.frames = append(ce.frames, fr)
	// The root block leaves the results at the bottom of the frame stack no
	// matter how it exits, so its unwind value needs no inspection.
	compiled.root.execute(ce, fr)
	results := make([]uint64, len(f.FunctionType.Results))
	copy(results, fr.stack)
	ce.frames = ce.frames[:len(ce.frames)-1]
	return results
}

// invoke runs a callee from inside a block body. The parameters sit on top
// of the caller's stack and the results replace them.
func (ce *callEngine) invoke(f *wasm.FunctionInstance, stack []uint64, sp int) int {
	numParams := len(f.FunctionType.Params)
	results := ce.call(f, stack[sp-numParams:sp]...)
	sp -= numParams
	copy(stack[sp:], results)
	return sp + len(results)
}
