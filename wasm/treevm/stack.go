package treevm

import "math"

// The operand stack is a flat []uint64 indexed by an explicit stack pointer
// that each block keeps in a local variable. Values of every type live in one
// slot: i32 values are zero extended and floats are stored as raw bits, so a
// slot can be reinterpreted freely by the typed accessors below.

func pushInt32(stack []uint64, sp int, v int32) {
	stack[sp] = uint64(uint32(v))
}

func pushUint32(stack []uint64, sp int, v uint32) {
	stack[sp] = uint64(v)
}

func pushInt64(stack []uint64, sp int, v int64) {
	stack[sp] = uint64(v)
}

func pushUint64(stack []uint64, sp int, v uint64) {
	stack[sp] = v
}

func pushFloat32(stack []uint64, sp int, v float32) {
	stack[sp] = uint64(math.Float32bits(v))
}

func pushFloat64(stack []uint64, sp int, v float64) {
	stack[sp] = math.Float64bits(v)
}

func pushBool(stack []uint64, sp int, v bool) {
	if v {
		stack[sp] = 1
	} else {
		stack[sp] = 0
	}
}

func int32At(stack []uint64, sp int) int32 {
	return int32(uint32(stack[sp]))
}

func uint32At(stack []uint64, sp int) uint32 {
	return uint32(stack[sp])
}

func int64At(stack []uint64, sp int) int64 {
	return int64(stack[sp])
}

func uint64At(stack []uint64, sp int) uint64 {
	return stack[sp]
}

func float32At(stack []uint64, sp int) float32 {
	return math.Float32frombits(uint32(stack[sp]))
}

func float64At(stack []uint64, sp int) float64 {
	return math.Float64frombits(stack[sp])
}

// unwindStack moves the arity values a branch carries from the top of the
// stack down to the target label's stack pointer. The regions may overlap but
// the destination is always at or below the source.
func unwindStack(stack []uint64, sp, targetSP, arity int) {
	copy(stack[targetSP:targetSP+arity], stack[sp-arity:sp])
}
