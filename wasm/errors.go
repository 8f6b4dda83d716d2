package wasm

import "errors"

// All the errors below are raised by the Engine during execution of Wasm
// functions, and indicate that the executed program trapped: the current
// call is aborted and its state is unrecoverable.
var (
	// ErrRuntimeCallStackOverflow indicates that there are too many function calls,
	// and the Engine terminated the execution.
	ErrRuntimeCallStackOverflow = errors.New("callstack overflow")
	// ErrRuntimeInvalidConversionToInteger indicates the Wasm function tried to
	// convert a NaN floating point value to an integer during trunc variant instructions.
	ErrRuntimeInvalidConversionToInteger = errors.New("invalid conversion to integer")
	// ErrRuntimeIntegerOverflow indicates that an integer arithmetic resulted in
	// an overflow value. For example, when the program tried to truncate a float
	// value which doesn't fit in the range of the target integer.
	ErrRuntimeIntegerOverflow = errors.New("integer overflow")
	// ErrRuntimeIntegerDivideByZero indicates that an integer div or rem instruction
	// was executed with 0 as the divisor.
	ErrRuntimeIntegerDivideByZero = errors.New("integer divide by zero")
	// ErrRuntimeUnreachable means the "unreachable" instruction was executed by the program.
	ErrRuntimeUnreachable = errors.New("unreachable")
	// ErrRuntimeOutOfBoundsMemoryAccess indicates that the program tried to access a
	// region beyond the linear memory.
	ErrRuntimeOutOfBoundsMemoryAccess = errors.New("out of bounds memory access")
	// ErrRuntimeInvalidTableAccess means either the offset to the table was out of bounds,
	// or the target element in the table was uninitialized during a call_indirect instruction.
	ErrRuntimeInvalidTableAccess = errors.New("invalid table access")
	// ErrRuntimeIndirectCallTypeMismatch indicates that the type check failed during call_indirect.
	ErrRuntimeIndirectCallTypeMismatch = errors.New("indirect call type mismatch")
)
