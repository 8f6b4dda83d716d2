package treevm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushInt32_ZeroExtends(t *testing.T) {
	stack := make([]uint64, 1)

	pushInt32(stack, 0, -1)
	require.Equal(t, uint64(0xffffffff), stack[0])
	require.Equal(t, int32(-1), int32At(stack, 0))
	require.Equal(t, uint32(0xffffffff), uint32At(stack, 0))
}

func TestPushFloat_RawBits(t *testing.T) {
	stack := make([]uint64, 2)

	pushFloat32(stack, 0, 1.5)
	pushFloat64(stack, 1, -2.5)
	require.Equal(t, uint64(math.Float32bits(1.5)), stack[0])
	require.Equal(t, math.Float64bits(-2.5), stack[1])
	require.Equal(t, float32(1.5), float32At(stack, 0))
	require.Equal(t, -2.5, float64At(stack, 1))
}

func TestPushBool(t *testing.T) {
	stack := make([]uint64, 2)

	pushBool(stack, 0, true)
	pushBool(stack, 1, false)
	require.Equal(t, uint64(1), stack[0])
	require.Equal(t, uint64(0), stack[1])
}

func TestUnwindStack(t *testing.T) {
	t.Run("moves results down", func(t *testing.T) {
		stack := []uint64{10, 20, 30, 40, 50}

		unwindStack(stack, 5, 1, 2)
		require.Equal(t, []uint64{10, 40, 50, 40, 50}, stack)
	})

	t.Run("zero arity leaves the stack alone", func(t *testing.T) {
		stack := []uint64{10, 20, 30}

		unwindStack(stack, 3, 0, 0)
		require.Equal(t, []uint64{10, 20, 30}, stack)
	})

	t.Run("overlapping regions", func(t *testing.T) {
		stack := []uint64{10, 20, 30, 40}

		unwindStack(stack, 4, 0, 3)
		require.Equal(t, []uint64{20, 30, 40, 40}, stack)
	})

	t.Run("in place", func(t *testing.T) {
		stack := []uint64{10, 20}

		unwindStack(stack, 2, 1, 1)
		require.Equal(t, []uint64{10, 20}, stack)
	})
}
