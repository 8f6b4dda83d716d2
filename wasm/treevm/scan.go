package treevm

import (
	"fmt"
	"io"

	"github.com/wasmtree/wasmtree/wasm"
	"github.com/wasmtree/wasmtree/wasm/ieee754"
	"github.com/wasmtree/wasmtree/wasm/leb128"
)

// labelScope is a branch destination visible while scanning a block body:
// the values the label receives and the stack pointer they land at.
type labelScope struct {
	arity        int
	stackPointer int
}

// scanner walks a function body exactly once, building the block tree and
// its side tables. It tracks the virtual stack pointer through every
// instruction so branch targets and the frame stack size are known before
// the first execution.
type scanner struct {
	f         *wasm.FunctionInstance
	body      []byte
	numLocals int
	// labels has the root label at index zero and the innermost label last.
	labels         []labelScope
	maxStackHeight int
}

// scanFunction builds the executable block tree for f and returns it with
// the operand stack size a frame for f needs.
func scanFunction(f *wasm.FunctionInstance) (*block, int, error) {
	if len(f.FunctionType.Results) > 1 {
		return nil, 0, fmt.Errorf("multiple return values are not supported")
	}
	s := &scanner{
		f:         f,
		body:      f.Body,
		numLocals: len(f.FunctionType.Params) + len(f.LocalTypes),
	}
	returnTypeID := byte(blockTypeEmpty)
	if len(f.FunctionType.Results) == 1 {
		returnTypeID = f.FunctionType.Results[0]
	}
	s.labels = append(s.labels, labelScope{arity: len(f.FunctionType.Results), stackPointer: 0})

	root, next, terminator, err := s.scanBlock(0, 0, returnTypeID)
	if err != nil {
		return nil, 0, err
	}
	if terminator != wasm.OpcodeEnd {
		return nil, 0, fmt.Errorf("else instruction outside an if at offset %d", next-1)
	}
	if next != len(s.body) {
		return nil, 0, fmt.Errorf("unexpected trailing bytes after the function end")
	}
	return root, s.maxStackHeight, nil
}

// scanBlock scans one block body beginning at start until its terminating
// end or else byte, with base as the block's initial stack pointer. It
// returns the finished block, the offset right after the terminator, and the
// terminator byte itself so the caller can pair else arms.
func (s *scanner) scanBlock(start, base int, returnTypeID byte) (*block, int, byte, error) {
	blk := &block{
		startOffset:         start,
		returnTypeID:        returnTypeID,
		initialStackPointer: base,
	}
	body := s.body
	vsp := base

	offset := start
	for offset < len(body) {
		opcode := body[offset]
		offset++
		switch opcode {
		case wasm.OpcodeEnd, wasm.OpcodeElse:
			blk.codeSize = offset - start
			return blk, offset, opcode, nil
		case wasm.OpcodeUnreachable:
			vsp = base
		case wasm.OpcodeNop:
		case wasm.OpcodeBlock, wasm.OpcodeLoop:
			if offset == len(body) {
				return nil, 0, 0, io.ErrUnexpectedEOF
			}
			blockType := body[offset]
			offset++
			if !validBlockType(blockType) {
				return nil, 0, 0, fmt.Errorf("invalid block type 0x%x at offset %d", blockType, offset-1)
			}
			arity := blockTypeArity(blockType)
			if opcode == wasm.OpcodeLoop {
				// A loop label sits at the loop header and receives no
				// values even when the loop itself produces one.
				s.labels = append(s.labels, labelScope{arity: 0, stackPointer: vsp})
			} else {
				s.labels = append(s.labels, labelScope{arity: arity, stackPointer: vsp})
			}
			child, next, terminator, err := s.scanBlock(offset, vsp, blockType)
			s.labels = s.labels[:len(s.labels)-1]
			if err != nil {
				return nil, 0, 0, err
			}
			if terminator != wasm.OpcodeEnd {
				return nil, 0, 0, fmt.Errorf("else instruction outside an if at offset %d", next-1)
			}
			blk.children = append(blk.children, child)
			offset = next
			vsp += arity
		case wasm.OpcodeIf:
			if offset == len(body) {
				return nil, 0, 0, io.ErrUnexpectedEOF
			}
			blockType := body[offset]
			offset++
			if !validBlockType(blockType) {
				return nil, 0, 0, fmt.Errorf("invalid block type 0x%x at offset %d", blockType, offset-1)
			}
			vsp-- // condition
			if vsp < base {
				vsp = base
			}
			arity := blockTypeArity(blockType)
			s.labels = append(s.labels, labelScope{arity: arity, stackPointer: vsp})
			thenBlock, next, terminator, err := s.scanBlock(offset, vsp, blockType)
			var elseBlock *block
			if err == nil && terminator == wasm.OpcodeElse {
				elseBlock, next, terminator, err = s.scanBlock(next, vsp, blockType)
			}
			s.labels = s.labels[:len(s.labels)-1]
			if err != nil {
				return nil, 0, 0, err
			}
			if terminator != wasm.OpcodeEnd {
				return nil, 0, 0, fmt.Errorf("if with two else arms at offset %d", next-1)
			}
			child := &ifBlock{
				thenBlock: thenBlock,
				elseBlock: elseBlock,
				condSP:    vsp,
				codeSize:  thenBlock.codeSize,
			}
			if elseBlock != nil {
				child.codeSize += elseBlock.codeSize
			}
			blk.children = append(blk.children, child)
			offset = next
			vsp += arity
		case wasm.OpcodeBr:
			depth, next, err := s.readUint32(blk, offset)
			if err != nil {
				return nil, 0, 0, err
			}
			target, err := s.branchTargetAt(depth)
			if err != nil {
				return nil, 0, 0, err
			}
			blk.branchTables = append(blk.branchTables, []branchTarget{target})
			offset = next
			vsp = base // the rest of the block is unreachable
		case wasm.OpcodeBrIf:
			depth, next, err := s.readUint32(blk, offset)
			if err != nil {
				return nil, 0, 0, err
			}
			target, err := s.branchTargetAt(depth)
			if err != nil {
				return nil, 0, 0, err
			}
			blk.branchTables = append(blk.branchTables, []branchTarget{target})
			offset = next
			vsp-- // condition
		case wasm.OpcodeBrTable:
			vsp-- // selector
			count, next, err := s.readUint32(blk, offset)
			if err != nil {
				return nil, 0, 0, err
			}
			offset = next
			targets := make([]branchTarget, 0, count+1)
			// The case targets in order, then the default target last.
			for i := uint32(0); i <= count; i++ {
				depth, next, err := s.readUint32(blk, offset)
				if err != nil {
					return nil, 0, 0, err
				}
				target, err := s.branchTargetAt(depth)
				if err != nil {
					return nil, 0, 0, err
				}
				targets = append(targets, target)
				offset = next
			}
			blk.branchTables = append(blk.branchTables, targets)
			vsp = base
		case wasm.OpcodeReturn:
			vsp = base
		case wasm.OpcodeCall:
			index, next, err := s.readUint32(blk, offset)
			if err != nil {
				return nil, 0, 0, err
			}
			functions := s.f.ModuleInstance.Functions
			if uint64(index) >= uint64(len(functions)) {
				return nil, 0, 0, fmt.Errorf("%s: unknown function index %d", wasm.InstructionName(opcode), index)
			}
			sig := functions[index].FunctionType
			offset = next
			vsp += len(sig.Results) - len(sig.Params)
		case wasm.OpcodeCallIndirect:
			index, next, err := s.readUint32(blk, offset)
			if err != nil {
				return nil, 0, 0, err
			}
			types := s.f.ModuleInstance.Types
			if uint64(index) >= uint64(len(types)) {
				return nil, 0, 0, fmt.Errorf("%s: unknown type index %d", wasm.InstructionName(opcode), index)
			}
			offset = next
			if offset == len(body) {
				return nil, 0, 0, io.ErrUnexpectedEOF
			}
			if body[offset] != 0 {
				return nil, 0, 0, fmt.Errorf("%s: reserved byte must be zero", wasm.InstructionName(opcode))
			}
			offset++
			sig := types[index]
			vsp += len(sig.Results) - len(sig.Params) - 1
		case wasm.OpcodeDrop:
			vsp--
		case wasm.OpcodeSelect:
			vsp -= 2
		case wasm.OpcodeLocalGet, wasm.OpcodeLocalSet, wasm.OpcodeLocalTee:
			index, next, err := s.readUint32(blk, offset)
			if err != nil {
				return nil, 0, 0, err
			}
			if uint64(index) >= uint64(s.numLocals) {
				return nil, 0, 0, fmt.Errorf("%s: unknown local index %d", wasm.InstructionName(opcode), index)
			}
			offset = next
			if opcode == wasm.OpcodeLocalGet {
				vsp++
			} else if opcode == wasm.OpcodeLocalSet {
				vsp--
			}
		case wasm.OpcodeGlobalGet, wasm.OpcodeGlobalSet:
			index, next, err := s.readUint32(blk, offset)
			if err != nil {
				return nil, 0, 0, err
			}
			if uint64(index) >= uint64(len(s.f.ModuleInstance.Globals)) {
				return nil, 0, 0, fmt.Errorf("%s: unknown global index %d", wasm.InstructionName(opcode), index)
			}
			offset = next
			if opcode == wasm.OpcodeGlobalGet {
				vsp++
			} else {
				vsp--
			}
		case wasm.OpcodeI32Load, wasm.OpcodeI64Load, wasm.OpcodeF32Load, wasm.OpcodeF64Load,
			wasm.OpcodeI32Load8S, wasm.OpcodeI32Load8U, wasm.OpcodeI32Load16S, wasm.OpcodeI32Load16U,
			wasm.OpcodeI64Load8S, wasm.OpcodeI64Load8U, wasm.OpcodeI64Load16S, wasm.OpcodeI64Load16U,
			wasm.OpcodeI64Load32S, wasm.OpcodeI64Load32U:
			next, err := s.readMemArg(blk, offset)
			if err != nil {
				return nil, 0, 0, err
			}
			offset = next
			// Pops the address and pushes the loaded value.
		case wasm.OpcodeI32Store, wasm.OpcodeI64Store, wasm.OpcodeF32Store, wasm.OpcodeF64Store,
			wasm.OpcodeI32Store8, wasm.OpcodeI32Store16,
			wasm.OpcodeI64Store8, wasm.OpcodeI64Store16, wasm.OpcodeI64Store32:
			next, err := s.readMemArg(blk, offset)
			if err != nil {
				return nil, 0, 0, err
			}
			offset = next
			vsp -= 2
		case wasm.OpcodeMemorySize, wasm.OpcodeMemoryGrow:
			if offset == len(body) {
				return nil, 0, 0, io.ErrUnexpectedEOF
			}
			if body[offset] != 0 {
				return nil, 0, 0, fmt.Errorf("%s: reserved byte must be zero", wasm.InstructionName(opcode))
			}
			offset++
			if opcode == wasm.OpcodeMemorySize {
				vsp++
			}
		case wasm.OpcodeI32Const:
			_, num, err := leb128.LoadInt32(body[offset:])
			if err != nil {
				return nil, 0, 0, err
			}
			blk.constantLengths = append(blk.constantLengths, byte(num))
			offset += int(num)
			vsp++
		case wasm.OpcodeI64Const:
			_, num, err := leb128.LoadInt64(body[offset:])
			if err != nil {
				return nil, 0, 0, err
			}
			blk.constantLengths = append(blk.constantLengths, byte(num))
			offset += int(num)
			vsp++
		case wasm.OpcodeF32Const:
			if _, err := ieee754.DecodeFloat32(body[offset:]); err != nil {
				return nil, 0, 0, err
			}
			offset += 4
			vsp++
		case wasm.OpcodeF64Const:
			if _, err := ieee754.DecodeFloat64(body[offset:]); err != nil {
				return nil, 0, 0, err
			}
			offset += 8
			vsp++
		default:
			effect, ok := numericStackEffect[opcode]
			if !ok {
				return nil, 0, 0, fmt.Errorf("unknown instruction 0x%x at offset %d", opcode, offset-1)
			}
			vsp += effect
		}
		if vsp < base {
			// Instructions after an unconditional transfer can pop values
			// that are never there at runtime.
			vsp = base
		}
		if vsp > s.maxStackHeight {
			s.maxStackHeight = vsp
		}
	}
	return nil, 0, 0, fmt.Errorf("function body is not terminated with the end instruction")
}

// readUint32 decodes an unsigned immediate, records its byte length in the
// block's side table, and returns the value with the next offset.
func (s *scanner) readUint32(blk *block, offset int) (uint32, int, error) {
	v, num, err := leb128.LoadUint32(s.body[offset:])
	if err != nil {
		return 0, 0, err
	}
	blk.constantLengths = append(blk.constantLengths, byte(num))
	return v, offset + int(num), nil
}

// readMemArg records the alignment hint and offset immediates of a memory
// instruction.
func (s *scanner) readMemArg(blk *block, offset int) (int, error) {
	_, next, err := s.readUint32(blk, offset)
	if err != nil {
		return 0, err
	}
	_, next, err = s.readUint32(blk, next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *scanner) branchTargetAt(depth uint32) (branchTarget, error) {
	if uint64(depth) >= uint64(len(s.labels)) {
		return branchTarget{}, fmt.Errorf("branch depth %d exceeds the enclosing label scopes", depth)
	}
	label := s.labels[len(s.labels)-1-int(depth)]
	return branchTarget{depth: int(depth), arity: label.arity, stackPointer: label.stackPointer}, nil
}

func validBlockType(blockType byte) bool {
	switch blockType {
	case blockTypeEmpty, wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64:
		return true
	default:
		return false
	}
}

func blockTypeArity(blockType byte) int {
	if blockType == blockTypeEmpty {
		return 0
	}
	return 1
}

// numericStackEffect maps the plain numeric instructions to their net effect
// on the stack height. Everything with immediates or control behavior is
// handled explicitly by the scanner, so an opcode in neither place is
// unknown.
var numericStackEffect = map[wasm.Opcode]int{
	wasm.OpcodeI32Eqz: 0, wasm.OpcodeI32Eq: -1, wasm.OpcodeI32Ne: -1,
	wasm.OpcodeI32LtS: -1, wasm.OpcodeI32LtU: -1, wasm.OpcodeI32GtS: -1, wasm.OpcodeI32GtU: -1,
	wasm.OpcodeI32LeS: -1, wasm.OpcodeI32LeU: -1, wasm.OpcodeI32GeS: -1, wasm.OpcodeI32GeU: -1,

	wasm.OpcodeI64Eqz: 0, wasm.OpcodeI64Eq: -1, wasm.OpcodeI64Ne: -1,
	wasm.OpcodeI64LtS: -1, wasm.OpcodeI64LtU: -1, wasm.OpcodeI64GtS: -1, wasm.OpcodeI64GtU: -1,
	wasm.OpcodeI64LeS: -1, wasm.OpcodeI64LeU: -1, wasm.OpcodeI64GeS: -1, wasm.OpcodeI64GeU: -1,

	wasm.OpcodeF32Eq: -1, wasm.OpcodeF32Ne: -1, wasm.OpcodeF32Lt: -1,
	wasm.OpcodeF32Gt: -1, wasm.OpcodeF32Le: -1, wasm.OpcodeF32Ge: -1,

	wasm.OpcodeF64Eq: -1, wasm.OpcodeF64Ne: -1, wasm.OpcodeF64Lt: -1,
	wasm.OpcodeF64Gt: -1, wasm.OpcodeF64Le: -1, wasm.OpcodeF64Ge: -1,

	wasm.OpcodeI32Clz: 0, wasm.OpcodeI32Ctz: 0, wasm.OpcodeI32Popcnt: 0,
	wasm.OpcodeI32Add: -1, wasm.OpcodeI32Sub: -1, wasm.OpcodeI32Mul: -1,
	wasm.OpcodeI32DivS: -1, wasm.OpcodeI32DivU: -1, wasm.OpcodeI32RemS: -1, wasm.OpcodeI32RemU: -1,
	wasm.OpcodeI32And: -1, wasm.OpcodeI32Or: -1, wasm.OpcodeI32Xor: -1,
	wasm.OpcodeI32Shl: -1, wasm.OpcodeI32ShrS: -1, wasm.OpcodeI32ShrU: -1,
	wasm.OpcodeI32Rotl: -1, wasm.OpcodeI32Rotr: -1,

	wasm.OpcodeI64Clz: 0, wasm.OpcodeI64Ctz: 0, wasm.OpcodeI64Popcnt: 0,
	wasm.OpcodeI64Add: -1, wasm.OpcodeI64Sub: -1, wasm.OpcodeI64Mul: -1,
	wasm.OpcodeI64DivS: -1, wasm.OpcodeI64DivU: -1, wasm.OpcodeI64RemS: -1, wasm.OpcodeI64RemU: -1,
	wasm.OpcodeI64And: -1, wasm.OpcodeI64Or: -1, wasm.OpcodeI64Xor: -1,
	wasm.OpcodeI64Shl: -1, wasm.OpcodeI64ShrS: -1, wasm.OpcodeI64ShrU: -1,
	wasm.OpcodeI64Rotl: -1, wasm.OpcodeI64Rotr: -1,

	wasm.OpcodeF32Abs: 0, wasm.OpcodeF32Neg: 0, wasm.OpcodeF32Ceil: 0, wasm.OpcodeF32Floor: 0,
	wasm.OpcodeF32Trunc: 0, wasm.OpcodeF32Nearest: 0, wasm.OpcodeF32Sqrt: 0,
	wasm.OpcodeF32Add: -1, wasm.OpcodeF32Sub: -1, wasm.OpcodeF32Mul: -1, wasm.OpcodeF32Div: -1,
	wasm.OpcodeF32Min: -1, wasm.OpcodeF32Max: -1, wasm.OpcodeF32Copysign: -1,

	wasm.OpcodeF64Abs: 0, wasm.OpcodeF64Neg: 0, wasm.OpcodeF64Ceil: 0, wasm.OpcodeF64Floor: 0,
	wasm.OpcodeF64Trunc: 0, wasm.OpcodeF64Nearest: 0, wasm.OpcodeF64Sqrt: 0,
	wasm.OpcodeF64Add: -1, wasm.OpcodeF64Sub: -1, wasm.OpcodeF64Mul: -1, wasm.OpcodeF64Div: -1,
	wasm.OpcodeF64Min: -1, wasm.OpcodeF64Max: -1, wasm.OpcodeF64Copysign: -1,

	wasm.OpcodeI32WrapI64: 0,
	wasm.OpcodeI32TruncF32S: 0, wasm.OpcodeI32TruncF32U: 0,
	wasm.OpcodeI32TruncF64S: 0, wasm.OpcodeI32TruncF64U: 0,
	wasm.OpcodeI64ExtendI32S: 0, wasm.OpcodeI64ExtendI32U: 0,
	wasm.OpcodeI64TruncF32S: 0, wasm.OpcodeI64TruncF32U: 0,
	wasm.OpcodeI64TruncF64S: 0, wasm.OpcodeI64TruncF64U: 0,
	wasm.OpcodeF32ConvertI32S: 0, wasm.OpcodeF32ConvertI32U: 0,
	wasm.OpcodeF32ConvertI64S: 0, wasm.OpcodeF32ConvertI64U: 0,
	wasm.OpcodeF32DemoteF64: 0,
	wasm.OpcodeF64ConvertI32S: 0, wasm.OpcodeF64ConvertI32U: 0,
	wasm.OpcodeF64ConvertI64S: 0, wasm.OpcodeF64ConvertI64U: 0,
	wasm.OpcodeF64PromoteF32: 0,
	wasm.OpcodeI32ReinterpretF32: 0, wasm.OpcodeI64ReinterpretF64: 0,
	wasm.OpcodeF32ReinterpretI32: 0, wasm.OpcodeF64ReinterpretI64: 0,
}
