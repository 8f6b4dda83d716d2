package treevm

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"github.com/wasmtree/wasmtree/wasm"
	"github.com/wasmtree/wasmtree/wasm/ieee754"
	"github.com/wasmtree/wasmtree/wasm/leb128"
	"github.com/wasmtree/wasmtree/wasm/moremath"
)

const (
	// branchNone means a block ran to its end without a branch, so the
	// enclosing block continues with the instruction after it.
	branchNone = -1
	// branchReturn unwinds every block down to the function root.
	branchReturn = math.MaxInt32

	// blockTypeEmpty is the encoding of a block that leaves no value on the
	// stack. A zero byte is treated the same way.
	blockTypeEmpty = 0x40
)

// node is a structured control construct nested in a block. A node executes
// against the frame it is given and reports how the control left it: a
// non-negative count is a branch that still has that many labels to unwind,
// branchReturn unwinds to the function root, and branchNone is ordinary fall
// through.
type node interface {
	execute(ce *callEngine, fr *frame) int
	size() int
	returnTypeLength() int
}

// branchTarget is a resolved branch destination: the label depth the branch
// returns, the number of values it carries, and the stack pointer those
// values are copied down to.
type branchTarget struct {
	depth        int
	arity        int
	stackPointer int
}

// block executes a straight-line span of the function body. The byte span is
// [startOffset, startOffset+codeSize) in the shared body and includes the
// terminating end (or else) byte.
//
// The side tables are consumed strictly in program order through cursors that
// are local variables of execute, so a block can be entered from any number
// of goroutines and can re-run its own span (a loop body does this) without
// shared cursor state.
type block struct {
	startOffset         int
	codeSize            int
	returnTypeID        byte
	initialStackPointer int

	// constantLengths holds the byte length of every variable-length
	// immediate in this block's own span, one entry per immediate in program
	// order. Fixed-width immediates (float literals, block types, reserved
	// zero bytes) are not recorded.
	constantLengths []byte
	// children holds the nested control constructs in program order.
	children []node
	// branchTables holds one resolved target list per branch site in program
	// order. br and br_if sites have a single target, br_table sites have
	// the case targets followed by the default.
	branchTables [][]branchTarget
}

func (n *block) size() int { return n.codeSize }

func (n *block) returnTypeLength() int {
	switch n.returnTypeID {
	case 0, blockTypeEmpty:
		return 0
	default:
		return 1
	}
}

// ifBlock wraps the two arms of an if construct. Both arms share the label
// of the construct itself, so an arm's result is handed to the enclosing
// block unchanged.
type ifBlock struct {
	thenBlock *block
	// elseBlock is nil when the construct has no else arm.
	elseBlock *block
	// condSP is the slot the condition was left in by the enclosing block.
	condSP   int
	codeSize int
}

func (n *ifBlock) size() int { return n.codeSize }

func (n *ifBlock) returnTypeLength() int { return n.thenBlock.returnTypeLength() }

func (n *ifBlock) execute(ce *callEngine, fr *frame) int {
	if fr.stack[n.condSP] != 0 {
		return n.thenBlock.execute(ce, fr)
	}
	if n.elseBlock == nil {
		return branchNone
	}
	return n.elseBlock.execute(ce, fr)
}

func (n *block) execute(ce *callEngine, fr *frame) int {
	body := fr.f.Body
	stack := fr.stack
	memory := fr.f.ModuleInstance.Memory

	offset := n.startOffset
	limit := n.startOffset + n.codeSize
	stackPointer := n.initialStackPointer
	var constIndex, childIndex, branchIndex int

	for offset < limit {
		code := body[offset]
		offset++
		switch code {
		case wasm.OpcodeUnreachable:
			panic(wasm.ErrRuntimeUnreachable)
		case wasm.OpcodeNop:
		case wasm.OpcodeBlock:
			offset++ // block type
			child := n.children[childIndex]
			childIndex++
			u := child.execute(ce, fr)
			if u == branchReturn {
				return branchReturn
			}
			if u > 0 {
				return u - 1
			}
			// Zero targets this construct's own label, which sits at its
			// end, so both zero and fall through continue after it.
			offset += child.size()
			stackPointer += child.returnTypeLength()
		case wasm.OpcodeLoop:
			offset++ // block type
			child := n.children[childIndex]
			childIndex++
			for {
				u := child.execute(ce, fr)
				if u == branchNone {
					break
				}
				if u == branchReturn {
					return branchReturn
				}
				if u > 0 {
					return u - 1
				}
				// Zero targets the loop header: run the body again.
			}
			offset += child.size()
			stackPointer += child.returnTypeLength()
		case wasm.OpcodeIf:
			offset++ // block type
			child := n.children[childIndex]
			childIndex++
			stackPointer-- // condition
			u := child.execute(ce, fr)
			if u == branchReturn {
				return branchReturn
			}
			if u > 0 {
				return u - 1
			}
			offset += child.size()
			stackPointer += child.returnTypeLength()
		case wasm.OpcodeElse, wasm.OpcodeEnd:
			// Terminators are included in the block's span; the loop bound
			// ends the block right after them.
		case wasm.OpcodeBr:
			target := n.branchTables[branchIndex][0]
			unwindStack(stack, stackPointer, target.stackPointer, target.arity)
			return target.depth
		case wasm.OpcodeBrIf:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			targets := n.branchTables[branchIndex]
			branchIndex++
			stackPointer--
			if stack[stackPointer] != 0 {
				target := targets[0]
				unwindStack(stack, stackPointer, target.stackPointer, target.arity)
				return target.depth
			}
		case wasm.OpcodeBrTable:
			targets := n.branchTables[branchIndex]
			stackPointer--
			index := int(uint32At(stack, stackPointer))
			// The default target is the last entry.
			target := targets[len(targets)-1]
			if index < len(targets)-1 {
				target = targets[index]
			}
			unwindStack(stack, stackPointer, target.stackPointer, target.arity)
			return target.depth
		case wasm.OpcodeReturn:
			arity := len(fr.f.FunctionType.Results)
			unwindStack(stack, stackPointer, 0, arity)
			return branchReturn
		case wasm.OpcodeCall:
			index := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			callee := fr.f.ModuleInstance.Functions[index]
			stackPointer = ce.invoke(callee, stack, stackPointer)
		case wasm.OpcodeCallIndirect:
			typeIndex := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			offset++ // reserved byte
			expected := fr.f.ModuleInstance.Types[typeIndex]
			stackPointer--
			tableIndex := uint32At(stack, stackPointer)
			table := fr.f.ModuleInstance.Table
			if table == nil || uint64(tableIndex) >= uint64(len(table.Table)) {
				panic(wasm.ErrRuntimeInvalidTableAccess)
			}
			callee := table.Table[tableIndex]
			if callee == nil {
				panic(wasm.ErrRuntimeInvalidTableAccess)
			}
			if !callee.FunctionType.EqualTo(expected) {
				panic(wasm.ErrRuntimeIndirectCallTypeMismatch)
			}
			stackPointer = ce.invoke(callee, stack, stackPointer)
		case wasm.OpcodeDrop:
			stackPointer--
		case wasm.OpcodeSelect:
			stackPointer--
			c := uint32At(stack, stackPointer)
			v2 := stack[stackPointer-1]
			v1 := stack[stackPointer-2]
			stackPointer -= 2
			if c != 0 {
				stack[stackPointer] = v1
			} else {
				stack[stackPointer] = v2
			}
			stackPointer++
		case wasm.OpcodeLocalGet:
			index := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stack[stackPointer] = fr.locals[index]
			stackPointer++
		case wasm.OpcodeLocalSet:
			index := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			fr.locals[index] = stack[stackPointer]
		case wasm.OpcodeLocalTee:
			index := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			fr.locals[index] = stack[stackPointer-1]
		case wasm.OpcodeGlobalGet:
			index := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stack[stackPointer] = fr.f.ModuleInstance.Globals[index].Val
			stackPointer++
		case wasm.OpcodeGlobalSet:
			index := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			fr.f.ModuleInstance.Globals[index].Val = stack[stackPointer]
		case wasm.OpcodeI32Load, wasm.OpcodeF32Load:
			offset += int(n.constantLengths[constIndex]) // alignment hint
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+4 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			pushUint32(stack, stackPointer, binary.LittleEndian.Uint32(memory.Buffer[base:]))
			stackPointer++
		case wasm.OpcodeI64Load, wasm.OpcodeF64Load:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+8 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			pushUint64(stack, stackPointer, binary.LittleEndian.Uint64(memory.Buffer[base:]))
			stackPointer++
		case wasm.OpcodeI32Load8S:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+1 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			pushInt32(stack, stackPointer, int32(int8(memory.Buffer[base])))
			stackPointer++
		case wasm.OpcodeI32Load8U:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+1 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			pushUint32(stack, stackPointer, uint32(memory.Buffer[base]))
			stackPointer++
		case wasm.OpcodeI32Load16S:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+2 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			pushInt32(stack, stackPointer, int32(int16(binary.LittleEndian.Uint16(memory.Buffer[base:]))))
			stackPointer++
		case wasm.OpcodeI32Load16U:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+2 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			pushUint32(stack, stackPointer, uint32(binary.LittleEndian.Uint16(memory.Buffer[base:])))
			stackPointer++
		case wasm.OpcodeI64Load8S:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+1 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			pushInt64(stack, stackPointer, int64(int8(memory.Buffer[base])))
			stackPointer++
		case wasm.OpcodeI64Load8U:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+1 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			pushUint64(stack, stackPointer, uint64(memory.Buffer[base]))
			stackPointer++
		case wasm.OpcodeI64Load16S:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+2 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			pushInt64(stack, stackPointer, int64(int16(binary.LittleEndian.Uint16(memory.Buffer[base:]))))
			stackPointer++
		case wasm.OpcodeI64Load16U:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+2 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			pushUint64(stack, stackPointer, uint64(binary.LittleEndian.Uint16(memory.Buffer[base:])))
			stackPointer++
		case wasm.OpcodeI64Load32S:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+4 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			pushInt64(stack, stackPointer, int64(int32(binary.LittleEndian.Uint32(memory.Buffer[base:]))))
			stackPointer++
		case wasm.OpcodeI64Load32U:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+4 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			pushUint64(stack, stackPointer, uint64(binary.LittleEndian.Uint32(memory.Buffer[base:])))
			stackPointer++
		case wasm.OpcodeI32Store, wasm.OpcodeF32Store:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			value := uint32At(stack, stackPointer)
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+4 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			binary.LittleEndian.PutUint32(memory.Buffer[base:], value)
		case wasm.OpcodeI64Store, wasm.OpcodeF64Store:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			value := uint64At(stack, stackPointer)
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+8 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			binary.LittleEndian.PutUint64(memory.Buffer[base:], value)
		case wasm.OpcodeI32Store8:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			value := byte(uint32At(stack, stackPointer))
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+1 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			memory.Buffer[base] = value
		case wasm.OpcodeI32Store16:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			value := uint16(uint32At(stack, stackPointer))
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+2 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			binary.LittleEndian.PutUint16(memory.Buffer[base:], value)
		case wasm.OpcodeI64Store8:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			value := byte(uint64At(stack, stackPointer))
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+1 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			memory.Buffer[base] = value
		case wasm.OpcodeI64Store16:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			value := uint16(uint64At(stack, stackPointer))
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+2 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			binary.LittleEndian.PutUint16(memory.Buffer[base:], value)
		case wasm.OpcodeI64Store32:
			offset += int(n.constantLengths[constIndex])
			constIndex++
			imm := loadUint32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			stackPointer--
			value := uint32(uint64At(stack, stackPointer))
			stackPointer--
			base := uint64(imm) + stack[stackPointer]
			if uint64(len(memory.Buffer)) < base+4 {
				panic(wasm.ErrRuntimeOutOfBoundsMemoryAccess)
			}
			binary.LittleEndian.PutUint32(memory.Buffer[base:], value)
		case wasm.OpcodeMemorySize:
			offset++ // reserved byte
			pushUint32(stack, stackPointer, memory.PageSize())
			stackPointer++
		case wasm.OpcodeMemoryGrow:
			offset++ // reserved byte
			stackPointer--
			pages := uint32At(stack, stackPointer)
			pushUint32(stack, stackPointer, memory.Grow(pages))
			stackPointer++
		case wasm.OpcodeI32Const:
			v := loadInt32(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			pushInt32(stack, stackPointer, v)
			stackPointer++
		case wasm.OpcodeI64Const:
			v := loadInt64(body, offset)
			offset += int(n.constantLengths[constIndex])
			constIndex++
			pushInt64(stack, stackPointer, v)
			stackPointer++
		case wasm.OpcodeF32Const:
			pushFloat32(stack, stackPointer, loadFloat32(body, offset))
			offset += 4
			stackPointer++
		case wasm.OpcodeF64Const:
			pushFloat64(stack, stackPointer, loadFloat64(body, offset))
			offset += 8
			stackPointer++
		case wasm.OpcodeI32Eqz:
			v := uint32At(stack, stackPointer-1)
			stackPointer--
			pushBool(stack, stackPointer, v == 0)
			stackPointer++
		case wasm.OpcodeI32Eq:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 == v2)
			stackPointer++
		case wasm.OpcodeI32Ne:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 != v2)
			stackPointer++
		case wasm.OpcodeI32LtS:
			v2 := int32At(stack, stackPointer-1)
			v1 := int32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 < v2)
			stackPointer++
		case wasm.OpcodeI32LtU:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 < v2)
			stackPointer++
		case wasm.OpcodeI32GtS:
			v2 := int32At(stack, stackPointer-1)
			v1 := int32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 > v2)
			stackPointer++
		case wasm.OpcodeI32GtU:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 > v2)
			stackPointer++
		case wasm.OpcodeI32LeS:
			v2 := int32At(stack, stackPointer-1)
			v1 := int32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 <= v2)
			stackPointer++
		case wasm.OpcodeI32LeU:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 <= v2)
			stackPointer++
		case wasm.OpcodeI32GeS:
			v2 := int32At(stack, stackPointer-1)
			v1 := int32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 >= v2)
			stackPointer++
		case wasm.OpcodeI32GeU:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 >= v2)
			stackPointer++
		case wasm.OpcodeI64Eqz:
			v := uint64At(stack, stackPointer-1)
			stackPointer--
			pushBool(stack, stackPointer, v == 0)
			stackPointer++
		case wasm.OpcodeI64Eq:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 == v2)
			stackPointer++
		case wasm.OpcodeI64Ne:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 != v2)
			stackPointer++
		case wasm.OpcodeI64LtS:
			v2 := int64At(stack, stackPointer-1)
			v1 := int64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 < v2)
			stackPointer++
		case wasm.OpcodeI64LtU:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 < v2)
			stackPointer++
		case wasm.OpcodeI64GtS:
			v2 := int64At(stack, stackPointer-1)
			v1 := int64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 > v2)
			stackPointer++
		case wasm.OpcodeI64GtU:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 > v2)
			stackPointer++
		case wasm.OpcodeI64LeS:
			v2 := int64At(stack, stackPointer-1)
			v1 := int64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 <= v2)
			stackPointer++
		case wasm.OpcodeI64LeU:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 <= v2)
			stackPointer++
		case wasm.OpcodeI64GeS:
			v2 := int64At(stack, stackPointer-1)
			v1 := int64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 >= v2)
			stackPointer++
		case wasm.OpcodeI64GeU:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 >= v2)
			stackPointer++
		case wasm.OpcodeF32Eq:
			v2 := float32At(stack, stackPointer-1)
			v1 := float32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 == v2)
			stackPointer++
		case wasm.OpcodeF32Ne:
			v2 := float32At(stack, stackPointer-1)
			v1 := float32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 != v2)
			stackPointer++
		case wasm.OpcodeF32Lt:
			v2 := float32At(stack, stackPointer-1)
			v1 := float32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 < v2)
			stackPointer++
		case wasm.OpcodeF32Gt:
			v2 := float32At(stack, stackPointer-1)
			v1 := float32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 > v2)
			stackPointer++
		case wasm.OpcodeF32Le:
			v2 := float32At(stack, stackPointer-1)
			v1 := float32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 <= v2)
			stackPointer++
		case wasm.OpcodeF32Ge:
			v2 := float32At(stack, stackPointer-1)
			v1 := float32At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 >= v2)
			stackPointer++
		case wasm.OpcodeF64Eq:
			v2 := float64At(stack, stackPointer-1)
			v1 := float64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 == v2)
			stackPointer++
		case wasm.OpcodeF64Ne:
			v2 := float64At(stack, stackPointer-1)
			v1 := float64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 != v2)
			stackPointer++
		case wasm.OpcodeF64Lt:
			v2 := float64At(stack, stackPointer-1)
			v1 := float64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 < v2)
			stackPointer++
		case wasm.OpcodeF64Gt:
			v2 := float64At(stack, stackPointer-1)
			v1 := float64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 > v2)
			stackPointer++
		case wasm.OpcodeF64Le:
			v2 := float64At(stack, stackPointer-1)
			v1 := float64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 <= v2)
			stackPointer++
		case wasm.OpcodeF64Ge:
			v2 := float64At(stack, stackPointer-1)
			v1 := float64At(stack, stackPointer-2)
			stackPointer -= 2
			pushBool(stack, stackPointer, v1 >= v2)
			stackPointer++
		case wasm.OpcodeI32Clz:
			v := uint32At(stack, stackPointer-1)
			stackPointer--
			pushUint32(stack, stackPointer, uint32(bits.LeadingZeros32(v)))
			stackPointer++
		case wasm.OpcodeI32Ctz:
			v := uint32At(stack, stackPointer-1)
			stackPointer--
			pushUint32(stack, stackPointer, uint32(bits.TrailingZeros32(v)))
			stackPointer++
		case wasm.OpcodeI32Popcnt:
			v := uint32At(stack, stackPointer-1)
			stackPointer--
			pushUint32(stack, stackPointer, uint32(bits.OnesCount32(v)))
			stackPointer++
		case wasm.OpcodeI32Add:
			v2 := int32At(stack, stackPointer-1)
			v1 := int32At(stack, stackPointer-2)
			stackPointer -= 2
			pushInt32(stack, stackPointer, v1+v2)
			stackPointer++
		case wasm.OpcodeI32Sub:
			v2 := int32At(stack, stackPointer-1)
			v1 := int32At(stack, stackPointer-2)
			stackPointer -= 2
			pushInt32(stack, stackPointer, v1-v2)
			stackPointer++
		case wasm.OpcodeI32Mul:
			v2 := int32At(stack, stackPointer-1)
			v1 := int32At(stack, stackPointer-2)
			stackPointer -= 2
			pushInt32(stack, stackPointer, v1*v2)
			stackPointer++
		case wasm.OpcodeI32DivS:
			v2 := int32At(stack, stackPointer-1)
			v1 := int32At(stack, stackPointer-2)
			stackPointer -= 2
			if v1 == math.MinInt32 && v2 == -1 {
				panic(wasm.ErrRuntimeIntegerOverflow)
			}
			pushInt32(stack, stackPointer, v1/v2)
			stackPointer++
		case wasm.OpcodeI32DivU:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint32(stack, stackPointer, v1/v2)
			stackPointer++
		case wasm.OpcodeI32RemS:
			v2 := int32At(stack, stackPointer-1)
			v1 := int32At(stack, stackPointer-2)
			stackPointer -= 2
			pushInt32(stack, stackPointer, v1%v2)
			stackPointer++
		case wasm.OpcodeI32RemU:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint32(stack, stackPointer, v1%v2)
			stackPointer++
		case wasm.OpcodeI32And:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint32(stack, stackPointer, v1&v2)
			stackPointer++
		case wasm.OpcodeI32Or:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint32(stack, stackPointer, v1|v2)
			stackPointer++
		case wasm.OpcodeI32Xor:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint32(stack, stackPointer, v1^v2)
			stackPointer++
		case wasm.OpcodeI32Shl:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint32(stack, stackPointer, v1<<(v2%32))
			stackPointer++
		case wasm.OpcodeI32ShrS:
			v2 := uint32At(stack, stackPointer-1)
			v1 := int32At(stack, stackPointer-2)
			stackPointer -= 2
			pushInt32(stack, stackPointer, v1>>(v2%32))
			stackPointer++
		case wasm.OpcodeI32ShrU:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint32(stack, stackPointer, v1>>(v2%32))
			stackPointer++
		case wasm.OpcodeI32Rotl:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint32(stack, stackPointer, bits.RotateLeft32(v1, int(v2)))
			stackPointer++
		case wasm.OpcodeI32Rotr:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint32(stack, stackPointer, bits.RotateLeft32(v1, -int(v2)))
			stackPointer++
		case wasm.OpcodeI64Clz:
			v := uint64At(stack, stackPointer-1)
			stackPointer--
			pushUint64(stack, stackPointer, uint64(bits.LeadingZeros64(v)))
			stackPointer++
		case wasm.OpcodeI64Ctz:
			v := uint64At(stack, stackPointer-1)
			stackPointer--
			pushUint64(stack, stackPointer, uint64(bits.TrailingZeros64(v)))
			stackPointer++
		case wasm.OpcodeI64Popcnt:
			v := uint64At(stack, stackPointer-1)
			stackPointer--
			pushUint64(stack, stackPointer, uint64(bits.OnesCount64(v)))
			stackPointer++
		case wasm.OpcodeI64Add:
			v2 := int64At(stack, stackPointer-1)
			v1 := int64At(stack, stackPointer-2)
			stackPointer -= 2
			pushInt64(stack, stackPointer, v1+v2)
			stackPointer++
		case wasm.OpcodeI64Sub:
			v2 := int64At(stack, stackPointer-1)
			v1 := int64At(stack, stackPointer-2)
			stackPointer -= 2
			pushInt64(stack, stackPointer, v1-v2)
			stackPointer++
		case wasm.OpcodeI64Mul:
			v2 := int64At(stack, stackPointer-1)
			v1 := int64At(stack, stackPointer-2)
			stackPointer -= 2
			pushInt64(stack, stackPointer, v1*v2)
			stackPointer++
		case wasm.OpcodeI64DivS:
			v2 := int64At(stack, stackPointer-1)
			v1 := int64At(stack, stackPointer-2)
			stackPointer -= 2
			if v1 == math.MinInt64 && v2 == -1 {
				panic(wasm.ErrRuntimeIntegerOverflow)
			}
			pushInt64(stack, stackPointer, v1/v2)
			stackPointer++
		case wasm.OpcodeI64DivU:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint64(stack, stackPointer, v1/v2)
			stackPointer++
		case wasm.OpcodeI64RemS:
			v2 := int64At(stack, stackPointer-1)
			v1 := int64At(stack, stackPointer-2)
			stackPointer -= 2
			pushInt64(stack, stackPointer, v1%v2)
			stackPointer++
		case wasm.OpcodeI64RemU:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint64(stack, stackPointer, v1%v2)
			stackPointer++
		case wasm.OpcodeI64And:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint64(stack, stackPointer, v1&v2)
			stackPointer++
		case wasm.OpcodeI64Or:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint64(stack, stackPointer, v1|v2)
			stackPointer++
		case wasm.OpcodeI64Xor:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint64(stack, stackPointer, v1^v2)
			stackPointer++
		case wasm.OpcodeI64Shl:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint64(stack, stackPointer, v1<<(v2%64))
			stackPointer++
		case wasm.OpcodeI64ShrS:
			v2 := uint64At(stack, stackPointer-1)
			v1 := int64At(stack, stackPointer-2)
			stackPointer -= 2
			pushInt64(stack, stackPointer, v1>>(v2%64))
			stackPointer++
		case wasm.OpcodeI64ShrU:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint64(stack, stackPointer, v1>>(v2%64))
			stackPointer++
		case wasm.OpcodeI64Rotl:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint64(stack, stackPointer, bits.RotateLeft64(v1, int(v2)))
			stackPointer++
		case wasm.OpcodeI64Rotr:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint64(stack, stackPointer, bits.RotateLeft64(v1, -int(v2)))
			stackPointer++
		case wasm.OpcodeF32Abs:
			v := uint32At(stack, stackPointer-1)
			stackPointer--
			pushUint32(stack, stackPointer, v&^(1<<31))
			stackPointer++
		case wasm.OpcodeF32Neg:
			v := float32At(stack, stackPointer-1)
			stackPointer--
			pushFloat32(stack, stackPointer, -v)
			stackPointer++
		case wasm.OpcodeF32Ceil:
			v := float32At(stack, stackPointer-1)
			stackPointer--
			pushFloat32(stack, stackPointer, float32(math.Ceil(float64(v))))
			stackPointer++
		case wasm.OpcodeF32Floor:
			v := float32At(stack, stackPointer-1)
			stackPointer--
			pushFloat32(stack, stackPointer, float32(math.Floor(float64(v))))
			stackPointer++
		case wasm.OpcodeF32Trunc:
			v := float32At(stack, stackPointer-1)
			stackPointer--
			pushFloat32(stack, stackPointer, float32(math.Trunc(float64(v))))
			stackPointer++
		case wasm.OpcodeF32Nearest:
			v := float32At(stack, stackPointer-1)
			stackPointer--
			pushFloat32(stack, stackPointer, moremath.WasmCompatNearestF32(v))
			stackPointer++
		case wasm.OpcodeF32Sqrt:
			v := float32At(stack, stackPointer-1)
			stackPointer--
			pushFloat32(stack, stackPointer, float32(math.Sqrt(float64(v))))
			stackPointer++
		case wasm.OpcodeF32Add:
			v2 := float32At(stack, stackPointer-1)
			v1 := float32At(stack, stackPointer-2)
			stackPointer -= 2
			pushFloat32(stack, stackPointer, v1+v2)
			stackPointer++
		case wasm.OpcodeF32Sub:
			v2 := float32At(stack, stackPointer-1)
			v1 := float32At(stack, stackPointer-2)
			stackPointer -= 2
			pushFloat32(stack, stackPointer, v1-v2)
			stackPointer++
		case wasm.OpcodeF32Mul:
			v2 := float32At(stack, stackPointer-1)
			v1 := float32At(stack, stackPointer-2)
			stackPointer -= 2
			pushFloat32(stack, stackPointer, v1*v2)
			stackPointer++
		case wasm.OpcodeF32Div:
			v2 := float32At(stack, stackPointer-1)
			v1 := float32At(stack, stackPointer-2)
			stackPointer -= 2
			pushFloat32(stack, stackPointer, v1/v2)
			stackPointer++
		case wasm.OpcodeF32Min:
			v2 := float32At(stack, stackPointer-1)
			v1 := float32At(stack, stackPointer-2)
			stackPointer -= 2
			pushFloat32(stack, stackPointer, float32(moremath.WasmCompatMin(float64(v1), float64(v2))))
			stackPointer++
		case wasm.OpcodeF32Max:
			v2 := float32At(stack, stackPointer-1)
			v1 := float32At(stack, stackPointer-2)
			stackPointer -= 2
			pushFloat32(stack, stackPointer, float32(moremath.WasmCompatMax(float64(v1), float64(v2))))
			stackPointer++
		case wasm.OpcodeF32Copysign:
			v2 := uint32At(stack, stackPointer-1)
			v1 := uint32At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint32(stack, stackPointer, v1&^(1<<31)|v2&(1<<31))
			stackPointer++
		case wasm.OpcodeF64Abs:
			v := uint64At(stack, stackPointer-1)
			stackPointer--
			pushUint64(stack, stackPointer, v&^(1<<63))
			stackPointer++
		case wasm.OpcodeF64Neg:
			v := float64At(stack, stackPointer-1)
			stackPointer--
			pushFloat64(stack, stackPointer, -v)
			stackPointer++
		case wasm.OpcodeF64Ceil:
			v := float64At(stack, stackPointer-1)
			stackPointer--
			pushFloat64(stack, stackPointer, math.Ceil(v))
			stackPointer++
		case wasm.OpcodeF64Floor:
			v := float64At(stack, stackPointer-1)
			stackPointer--
			pushFloat64(stack, stackPointer, math.Floor(v))
			stackPointer++
		case wasm.OpcodeF64Trunc:
			v := float64At(stack, stackPointer-1)
			stackPointer--
			pushFloat64(stack, stackPointer, math.Trunc(v))
			stackPointer++
		case wasm.OpcodeF64Nearest:
			v := float64At(stack, stackPointer-1)
			stackPointer--
			pushFloat64(stack, stackPointer, moremath.WasmCompatNearestF64(v))
			stackPointer++
		case wasm.OpcodeF64Sqrt:
			v := float64At(stack, stackPointer-1)
			stackPointer--
			pushFloat64(stack, stackPointer, math.Sqrt(v))
			stackPointer++
		case wasm.OpcodeF64Add:
			v2 := float64At(stack, stackPointer-1)
			v1 := float64At(stack, stackPointer-2)
			stackPointer -= 2
			pushFloat64(stack, stackPointer, v1+v2)
			stackPointer++
		case wasm.OpcodeF64Sub:
			v2 := float64At(stack, stackPointer-1)
			v1 := float64At(stack, stackPointer-2)
			stackPointer -= 2
			pushFloat64(stack, stackPointer, v1-v2)
			stackPointer++
		case wasm.OpcodeF64Mul:
			v2 := float64At(stack, stackPointer-1)
			v1 := float64At(stack, stackPointer-2)
			stackPointer -= 2
			pushFloat64(stack, stackPointer, v1*v2)
			stackPointer++
		case wasm.OpcodeF64Div:
			v2 := float64At(stack, stackPointer-1)
			v1 := float64At(stack, stackPointer-2)
			stackPointer -= 2
			pushFloat64(stack, stackPointer, v1/v2)
			stackPointer++
		case wasm.OpcodeF64Min:
			v2 := float64At(stack, stackPointer-1)
			v1 := float64At(stack, stackPointer-2)
			stackPointer -= 2
			pushFloat64(stack, stackPointer, moremath.WasmCompatMin(v1, v2))
			stackPointer++
		case wasm.OpcodeF64Max:
			v2 := float64At(stack, stackPointer-1)
			v1 := float64At(stack, stackPointer-2)
			stackPointer -= 2
			pushFloat64(stack, stackPointer, moremath.WasmCompatMax(v1, v2))
			stackPointer++
		case wasm.OpcodeF64Copysign:
			v2 := uint64At(stack, stackPointer-1)
			v1 := uint64At(stack, stackPointer-2)
			stackPointer -= 2
			pushUint64(stack, stackPointer, v1&^(1<<63)|v2&(1<<63))
			stackPointer++
		case wasm.OpcodeI32WrapI64:
			v := uint64At(stack, stackPointer-1)
			stackPointer--
			pushUint32(stack, stackPointer, uint32(v))
			stackPointer++
		case wasm.OpcodeI32TruncF32S:
			v := math.Trunc(float64(float32At(stack, stackPointer-1)))
			stackPointer--
			if math.IsNaN(v) {
				panic(wasm.ErrRuntimeInvalidConversionToInteger)
			}
			if v < math.MinInt32 || v > math.MaxInt32 {
				panic(wasm.ErrRuntimeIntegerOverflow)
			}
			pushInt32(stack, stackPointer, int32(v))
			stackPointer++
		case wasm.OpcodeI32TruncF32U:
			v := math.Trunc(float64(float32At(stack, stackPointer-1)))
			stackPointer--
			if math.IsNaN(v) {
				panic(wasm.ErrRuntimeInvalidConversionToInteger)
			}
			if v < 0 || v > math.MaxUint32 {
				panic(wasm.ErrRuntimeIntegerOverflow)
			}
			pushUint32(stack, stackPointer, uint32(v))
			stackPointer++
		case wasm.OpcodeI32TruncF64S:
			v := math.Trunc(float64At(stack, stackPointer-1))
			stackPointer--
			if math.IsNaN(v) {
				panic(wasm.ErrRuntimeInvalidConversionToInteger)
			}
			if v < math.MinInt32 || v > math.MaxInt32 {
				panic(wasm.ErrRuntimeIntegerOverflow)
			}
			pushInt32(stack, stackPointer, int32(v))
			stackPointer++
		case wasm.OpcodeI32TruncF64U:
			v := math.Trunc(float64At(stack, stackPointer-1))
			stackPointer--
			if math.IsNaN(v) {
				panic(wasm.ErrRuntimeInvalidConversionToInteger)
			}
			if v < 0 || v > math.MaxUint32 {
				panic(wasm.ErrRuntimeIntegerOverflow)
			}
			pushUint32(stack, stackPointer, uint32(v))
			stackPointer++
		case wasm.OpcodeI64ExtendI32S:
			v := int32At(stack, stackPointer-1)
			stackPointer--
			pushInt64(stack, stackPointer, int64(v))
			stackPointer++
		case wasm.OpcodeI64ExtendI32U:
			v := uint32At(stack, stackPointer-1)
			stackPointer--
			pushUint64(stack, stackPointer, uint64(v))
			stackPointer++
		case wasm.OpcodeI64TruncF32S:
			v := math.Trunc(float64(float32At(stack, stackPointer-1)))
			stackPointer--
			if math.IsNaN(v) {
				panic(wasm.ErrRuntimeInvalidConversionToInteger)
			}
			// math.MaxInt64 is rounded up to math.MaxInt64+1 in 64-bit float
			// representation, so the overflow check uses '>=' not '>'.
			if v < math.MinInt64 || v >= math.MaxInt64 {
				panic(wasm.ErrRuntimeIntegerOverflow)
			}
			pushInt64(stack, stackPointer, int64(v))
			stackPointer++
		case wasm.OpcodeI64TruncF32U:
			v := math.Trunc(float64(float32At(stack, stackPointer-1)))
			stackPointer--
			if math.IsNaN(v) {
				panic(wasm.ErrRuntimeInvalidConversionToInteger)
			}
			if v < 0 || v >= math.MaxUint64 {
				panic(wasm.ErrRuntimeIntegerOverflow)
			}
			pushUint64(stack, stackPointer, uint64(v))
			stackPointer++
		case wasm.OpcodeI64TruncF64S:
			v := math.Trunc(float64At(stack, stackPointer-1))
			stackPointer--
			if math.IsNaN(v) {
				panic(wasm.ErrRuntimeInvalidConversionToInteger)
			}
			if v < math.MinInt64 || v >= math.MaxInt64 {
				panic(wasm.ErrRuntimeIntegerOverflow)
			}
			pushInt64(stack, stackPointer, int64(v))
			stackPointer++
		case wasm.OpcodeI64TruncF64U:
			v := math.Trunc(float64At(stack, stackPointer-1))
			stackPointer--
			if math.IsNaN(v) {
				panic(wasm.ErrRuntimeInvalidConversionToInteger)
			}
			if v < 0 || v >= math.MaxUint64 {
				panic(wasm.ErrRuntimeIntegerOverflow)
			}
			pushUint64(stack, stackPointer, uint64(v))
			stackPointer++
		case wasm.OpcodeF32ConvertI32S:
			v := int32At(stack, stackPointer-1)
			stackPointer--
			pushFloat32(stack, stackPointer, float32(v))
			stackPointer++
		case wasm.OpcodeF32ConvertI32U:
			v := uint32At(stack, stackPointer-1)
			stackPointer--
			pushFloat32(stack, stackPointer, float32(v))
			stackPointer++
		case wasm.OpcodeF32ConvertI64S:
			v := int64At(stack, stackPointer-1)
			stackPointer--
			pushFloat32(stack, stackPointer, float32(v))
			stackPointer++
		case wasm.OpcodeF32ConvertI64U:
			v := uint64At(stack, stackPointer-1)
			stackPointer--
			pushFloat32(stack, stackPointer, float32(v))
			stackPointer++
		case wasm.OpcodeF32DemoteF64:
			v := float64At(stack, stackPointer-1)
			stackPointer--
			pushFloat32(stack, stackPointer, float32(v))
			stackPointer++
		case wasm.OpcodeF64ConvertI32S:
			v := int32At(stack, stackPointer-1)
			stackPointer--
			pushFloat64(stack, stackPointer, float64(v))
			stackPointer++
		case wasm.OpcodeF64ConvertI32U:
			v := uint32At(stack, stackPointer-1)
			stackPointer--
			pushFloat64(stack, stackPointer, float64(v))
			stackPointer++
		case wasm.OpcodeF64ConvertI64S:
			v := int64At(stack, stackPointer-1)
			stackPointer--
			pushFloat64(stack, stackPointer, float64(v))
			stackPointer++
		case wasm.OpcodeF64ConvertI64U:
			v := uint64At(stack, stackPointer-1)
			stackPointer--
			pushFloat64(stack, stackPointer, float64(v))
			stackPointer++
		case wasm.OpcodeF64PromoteF32:
			v := float32At(stack, stackPointer-1)
			stackPointer--
			pushFloat64(stack, stackPointer, float64(v))
			stackPointer++
		case wasm.OpcodeI32ReinterpretF32, wasm.OpcodeI64ReinterpretF64,
			wasm.OpcodeF32ReinterpretI32, wasm.OpcodeF64ReinterpretI64:
			// Reinterpretations leave the raw slot bits untouched.
		default:
			panic(fmt.Errorf("unknown instruction 0x%x", code))
		}
	}
	return branchNone
}

// The scan phase validated every immediate, so decoding cannot fail here.

func loadInt32(body []byte, offset int) int32 {
	v, _, err := leb128.LoadInt32(body[offset:])
	if err != nil {
		panic(err)
	}
	return v
}

func loadInt64(body []byte, offset int) int64 {
	v, _, err := leb128.LoadInt64(body[offset:])
	if err != nil {
		panic(err)
	}
	return v
}

func loadUint32(body []byte, offset int) uint32 {
	v, _, err := leb128.LoadUint32(body[offset:])
	if err != nil {
		panic(err)
	}
	return v
}

func loadFloat32(body []byte, offset int) float32 {
	v, err := ieee754.DecodeFloat32(body[offset:])
	if err != nil {
		panic(err)
	}
	return v
}

func loadFloat64(body []byte, offset int) float64 {
	v, err := ieee754.DecodeFloat64(body[offset:])
	if err != nil {
		panic(err)
	}
	return v
}
