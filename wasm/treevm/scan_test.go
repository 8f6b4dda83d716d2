package treevm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmtree/wasmtree/wasm"
)

// scanTestFunction wraps a raw body in a function instance with the given
// signature so the scanner sees realistic module context.
func scanTestFunction(params, results []wasm.ValueType, localTypes []wasm.ValueType, body []byte) *wasm.FunctionInstance {
	m := &wasm.ModuleInstance{}
	f := &wasm.FunctionInstance{
		Name:           "test",
		ModuleInstance: m,
		Body:           body,
		FunctionType:   &wasm.FunctionType{Params: params, Results: results},
		LocalTypes:     localTypes,
	}
	m.Functions = []*wasm.FunctionInstance{f}
	m.Types = []*wasm.FunctionType{f.FunctionType}
	return f
}

func TestScanFunction_Structure(t *testing.T) {
	f := scanTestFunction(nil, nil, nil, []byte{
		wasm.OpcodeI32Const, 42,
		wasm.OpcodeDrop,
		wasm.OpcodeBlock, blockTypeEmpty,
		wasm.OpcodeI32Const, 1,
		wasm.OpcodeBrIf, 0,
		wasm.OpcodeEnd,
		wasm.OpcodeEnd,
	})

	root, maxStackHeight, err := scanFunction(f)
	require.NoError(t, err)
	require.Equal(t, 1, maxStackHeight)

	require.Equal(t, 0, root.startOffset)
	require.Equal(t, len(f.Body), root.codeSize)
	require.Equal(t, 0, root.initialStackPointer)
	require.Equal(t, []byte{1}, root.constantLengths)
	require.Len(t, root.children, 1)
	require.Empty(t, root.branchTables)

	child, ok := root.children[0].(*block)
	require.True(t, ok)
	require.Equal(t, 5, child.startOffset)
	require.Equal(t, 5, child.codeSize)
	require.Equal(t, 0, child.initialStackPointer)
	require.Equal(t, []byte{1, 1}, child.constantLengths)
	require.Equal(t, [][]branchTarget{{{depth: 0, arity: 0, stackPointer: 0}}}, child.branchTables)
}

func TestScanFunction_IfElse(t *testing.T) {
	f := scanTestFunction(nil, []wasm.ValueType{wasm.ValueTypeI32}, nil, []byte{
		wasm.OpcodeI32Const, 1,
		wasm.OpcodeIf, byte(wasm.ValueTypeI32),
		wasm.OpcodeI32Const, 2,
		wasm.OpcodeElse,
		wasm.OpcodeI32Const, 3,
		wasm.OpcodeEnd,
		wasm.OpcodeEnd,
	})

	root, maxStackHeight, err := scanFunction(f)
	require.NoError(t, err)
	require.Equal(t, 1, maxStackHeight)
	require.Len(t, root.children, 1)

	child, ok := root.children[0].(*ifBlock)
	require.True(t, ok)
	require.Equal(t, 0, child.condSP)
	require.Equal(t, 6, child.size())
	require.Equal(t, 1, child.returnTypeLength())

	require.Equal(t, 4, child.thenBlock.startOffset)
	require.Equal(t, 3, child.thenBlock.codeSize) // through its else byte
	require.Equal(t, 0, child.thenBlock.initialStackPointer)

	require.NotNil(t, child.elseBlock)
	require.Equal(t, 7, child.elseBlock.startOffset)
	require.Equal(t, 3, child.elseBlock.codeSize)
	require.Equal(t, 0, child.elseBlock.initialStackPointer)
}

func TestScanFunction_IfWithoutElse(t *testing.T) {
	f := scanTestFunction(nil, nil, nil, []byte{
		wasm.OpcodeI32Const, 1,
		wasm.OpcodeIf, blockTypeEmpty,
		wasm.OpcodeNop,
		wasm.OpcodeEnd,
		wasm.OpcodeEnd,
	})

	root, _, err := scanFunction(f)
	require.NoError(t, err)

	child, ok := root.children[0].(*ifBlock)
	require.True(t, ok)
	require.Nil(t, child.elseBlock)
	require.Equal(t, child.thenBlock.codeSize, child.size())
	require.Equal(t, 0, child.returnTypeLength())
}

// TestScanFunction_LoopLabel ensures a branch to a loop receives no values
// even when the loop's own type produces one, while a branch to a block
// receives the block's results.
func TestScanFunction_LoopLabel(t *testing.T) {
	f := scanTestFunction(nil, []wasm.ValueType{wasm.ValueTypeI32}, nil, []byte{
		wasm.OpcodeBlock, byte(wasm.ValueTypeI32),
		wasm.OpcodeLoop, byte(wasm.ValueTypeI32),
		wasm.OpcodeI32Const, 8,
		wasm.OpcodeI32Const, 1,
		wasm.OpcodeBrIf, 1,
		wasm.OpcodeI32Const, 1,
		wasm.OpcodeBrIf, 0,
		wasm.OpcodeEnd,
		wasm.OpcodeEnd,
		wasm.OpcodeEnd,
	})

	root, maxStackHeight, err := scanFunction(f)
	require.NoError(t, err)
	require.Equal(t, 2, maxStackHeight)

	outer, ok := root.children[0].(*block)
	require.True(t, ok)
	loop, ok := outer.children[0].(*block)
	require.True(t, ok)

	require.Equal(t, [][]branchTarget{
		{{depth: 1, arity: 1, stackPointer: 0}},
		{{depth: 0, arity: 0, stackPointer: 0}},
	}, loop.branchTables)
}

func TestScanFunction_BrTableTargets(t *testing.T) {
	f := scanTestFunction(nil, nil, nil, []byte{
		wasm.OpcodeBlock, blockTypeEmpty,
		wasm.OpcodeBlock, blockTypeEmpty,
		wasm.OpcodeI32Const, 1,
		wasm.OpcodeBrTable, 2, 0, 1, 0, // two cases then the default
		wasm.OpcodeEnd,
		wasm.OpcodeEnd,
		wasm.OpcodeEnd,
	})

	root, _, err := scanFunction(f)
	require.NoError(t, err)

	outer := root.children[0].(*block)
	inner := outer.children[0].(*block)
	require.Equal(t, [][]branchTarget{{
		{depth: 0, arity: 0, stackPointer: 0},
		{depth: 1, arity: 0, stackPointer: 0},
		{depth: 0, arity: 0, stackPointer: 0},
	}}, inner.branchTables)
	// The count and the three depths are all recorded.
	require.Equal(t, []byte{1, 1, 1, 1, 1}, inner.constantLengths)
}

func TestScanFunction_MultiByteConstant(t *testing.T) {
	body := append([]byte{wasm.OpcodeI32Const}, 0xe5, 0x8e, 0x26) // 624485
	body = append(body, wasm.OpcodeDrop, wasm.OpcodeEnd)
	f := scanTestFunction(nil, nil, nil, body)

	root, _, err := scanFunction(f)
	require.NoError(t, err)
	require.Equal(t, []byte{3}, root.constantLengths)
}

func TestScanFunction_MemoryImmediates(t *testing.T) {
	f := scanTestFunction([]wasm.ValueType{wasm.ValueTypeI32}, nil, nil, []byte{
		wasm.OpcodeLocalGet, 0,
		wasm.OpcodeI32Load, 2, 8, // alignment then offset
		wasm.OpcodeDrop,
		wasm.OpcodeEnd,
	})

	root, _, err := scanFunction(f)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 1, 1}, root.constantLengths)
}

func TestScanFunction_MaxStackHeight(t *testing.T) {
	f := scanTestFunction(nil, []wasm.ValueType{wasm.ValueTypeI32}, nil, []byte{
		wasm.OpcodeI32Const, 1,
		wasm.OpcodeI32Const, 2,
		wasm.OpcodeI32Const, 3,
		wasm.OpcodeI32Const, 4,
		wasm.OpcodeI32Add,
		wasm.OpcodeI32Add,
		wasm.OpcodeI32Add,
		wasm.OpcodeEnd,
	})

	_, maxStackHeight, err := scanFunction(f)
	require.NoError(t, err)
	require.Equal(t, 4, maxStackHeight)
}

func TestScanFunction_DeadCodeAfterBranch(t *testing.T) {
	// The pops after the unconditional br would underflow the block's base
	// if the scanner followed them literally.
	f := scanTestFunction(nil, nil, nil, []byte{
		wasm.OpcodeBlock, blockTypeEmpty,
		wasm.OpcodeBr, 0,
		wasm.OpcodeDrop,
		wasm.OpcodeDrop,
		wasm.OpcodeEnd,
		wasm.OpcodeEnd,
	})

	_, maxStackHeight, err := scanFunction(f)
	require.NoError(t, err)
	require.Equal(t, 0, maxStackHeight)
}

func TestScanFunction_Errors(t *testing.T) {
	tests := []struct {
		name   string
		f      *wasm.FunctionInstance
		expErr string
	}{
		{
			name:   "unknown instruction",
			f:      scanTestFunction(nil, nil, nil, []byte{0xff, wasm.OpcodeEnd}),
			expErr: "unknown instruction 0xff at offset 0",
		},
		{
			name:   "unknown local",
			f:      scanTestFunction([]wasm.ValueType{i32}, nil, nil, []byte{wasm.OpcodeLocalGet, 5, wasm.OpcodeEnd}),
			expErr: "local.get: unknown local index 5",
		},
		{
			name:   "unknown global",
			f:      scanTestFunction(nil, nil, nil, []byte{wasm.OpcodeGlobalSet, 0, wasm.OpcodeEnd}),
			expErr: "global.set: unknown global index 0",
		},
		{
			name:   "unknown function",
			f:      scanTestFunction(nil, nil, nil, []byte{wasm.OpcodeCall, 9, wasm.OpcodeEnd}),
			expErr: "call: unknown function index 9",
		},
		{
			name:   "unknown type",
			f:      scanTestFunction(nil, nil, nil, []byte{wasm.OpcodeCallIndirect, 3, 0, wasm.OpcodeEnd}),
			expErr: "call_indirect: unknown type index 3",
		},
		{
			name:   "call_indirect reserved byte",
			f:      scanTestFunction(nil, nil, nil, []byte{wasm.OpcodeI32Const, 0, wasm.OpcodeCallIndirect, 0, 1, wasm.OpcodeEnd}),
			expErr: "call_indirect: reserved byte must be zero",
		},
		{
			name:   "memory.size reserved byte",
			f:      scanTestFunction(nil, nil, nil, []byte{wasm.OpcodeMemorySize, 1, wasm.OpcodeEnd}),
			expErr: "memory.size: reserved byte must be zero",
		},
		{
			name:   "invalid block type",
			f:      scanTestFunction(nil, nil, nil, []byte{wasm.OpcodeBlock, 0x7b, wasm.OpcodeEnd, wasm.OpcodeEnd}),
			expErr: "invalid block type 0x7b at offset 1",
		},
		{
			name:   "else outside an if",
			f:      scanTestFunction(nil, nil, nil, []byte{wasm.OpcodeElse, wasm.OpcodeEnd}),
			expErr: "else instruction outside an if at offset 0",
		},
		{
			name: "two else arms",
			f: scanTestFunction(nil, nil, nil, []byte{
				wasm.OpcodeI32Const, 0,
				wasm.OpcodeIf, blockTypeEmpty,
				wasm.OpcodeElse,
				wasm.OpcodeElse,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			}),
			expErr: "if with two else arms at offset 5",
		},
		{
			name:   "branch depth out of scope",
			f:      scanTestFunction(nil, nil, nil, []byte{wasm.OpcodeBr, 5, wasm.OpcodeEnd}),
			expErr: "branch depth 5 exceeds the enclosing label scopes",
		},
		{
			name:   "missing end",
			f:      scanTestFunction(nil, nil, nil, []byte{wasm.OpcodeNop}),
			expErr: "function body is not terminated with the end instruction",
		},
		{
			name:   "trailing bytes",
			f:      scanTestFunction(nil, nil, nil, []byte{wasm.OpcodeEnd, wasm.OpcodeNop}),
			expErr: "unexpected trailing bytes after the function end",
		},
		{
			name:   "truncated immediate",
			f:      scanTestFunction(nil, nil, nil, []byte{wasm.OpcodeI32Const}),
			expErr: "unexpected EOF",
		},
		{
			name:   "truncated float",
			f:      scanTestFunction(nil, nil, nil, []byte{wasm.OpcodeF32Const, 0, 0}),
			expErr: "unexpected EOF",
		},
		{
			name: "multiple results",
			f: scanTestFunction(nil, []wasm.ValueType{i32, i32}, nil,
				[]byte{wasm.OpcodeEnd}),
			expErr: "multiple return values are not supported",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := scanFunction(tc.f)
			require.EqualError(t, err, tc.expErr)
		})
	}
}
