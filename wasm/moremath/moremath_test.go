package moremath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWasmCompatMin(t *testing.T) {
	require.Equal(t, 1.0, WasmCompatMin(1.0, 2.0))
	require.Equal(t, -2.0, WasmCompatMin(-2.0, 1.0))
	require.Equal(t, math.Inf(-1), WasmCompatMin(math.Inf(-1), 1.0))

	// NaN wins over -Inf, unlike math.Min.
	require.True(t, math.IsNaN(WasmCompatMin(math.NaN(), math.Inf(-1))))
	require.True(t, math.IsNaN(WasmCompatMin(1.0, math.NaN())))

	// -0 is smaller than +0.
	require.True(t, math.Signbit(WasmCompatMin(math.Copysign(0, -1), 0)))
}

func TestWasmCompatMax(t *testing.T) {
	require.Equal(t, 2.0, WasmCompatMax(1.0, 2.0))
	require.Equal(t, 1.0, WasmCompatMax(-2.0, 1.0))
	require.Equal(t, math.Inf(1), WasmCompatMax(math.Inf(1), 1.0))

	require.True(t, math.IsNaN(WasmCompatMax(math.NaN(), math.Inf(1))))
	require.True(t, math.IsNaN(WasmCompatMax(1.0, math.NaN())))

	require.False(t, math.Signbit(WasmCompatMax(math.Copysign(0, -1), 0)))
}

func TestWasmCompatNearestF32(t *testing.T) {
	for _, c := range []struct {
		input    float32
		expected float32
	}{
		{input: 0.5, expected: 0},
		{input: 1.5, expected: 2},
		{input: 2.5, expected: 2},
		{input: 3.5, expected: 4},
		{input: 4.5, expected: 4},
		{input: -0.5, expected: 0},
		{input: -2.5, expected: -2},
		{input: -3.5, expected: -4},
		{input: 3.3, expected: 3},
		{input: 3.7, expected: 4},
		{input: -3.3, expected: -3},
		{input: -3.7, expected: -4},
		{input: 7, expected: 7},
		{input: float32(math.Inf(1)), expected: float32(math.Inf(1))},
		{input: float32(math.Inf(-1)), expected: float32(math.Inf(-1))},
	} {
		require.Equal(t, c.expected, WasmCompatNearestF32(c.input), "%f", c.input)
	}

	require.True(t, math.IsNaN(float64(WasmCompatNearestF32(float32(math.NaN())))))
	// Zeroes keep their sign.
	require.True(t, math.Signbit(float64(WasmCompatNearestF32(float32(math.Copysign(0, -1))))))
}

func TestWasmCompatNearestF64(t *testing.T) {
	for _, c := range []struct {
		input    float64
		expected float64
	}{
		{input: 0.5, expected: 0},
		{input: 1.5, expected: 2},
		{input: 2.5, expected: 2},
		{input: 3.5, expected: 4},
		{input: 4.5, expected: 4},
		{input: -0.5, expected: 0},
		{input: -2.5, expected: -2},
		{input: -3.5, expected: -4},
		{input: 3.3, expected: 3},
		{input: 3.7, expected: 4},
		{input: -3.3, expected: -3},
		{input: -3.7, expected: -4},
		{input: 7, expected: 7},
		{input: math.Inf(1), expected: math.Inf(1)},
		{input: math.Inf(-1), expected: math.Inf(-1)},
	} {
		require.Equal(t, c.expected, WasmCompatNearestF64(c.input), "%f", c.input)
	}

	require.True(t, math.IsNaN(WasmCompatNearestF64(math.NaN())))
	require.True(t, math.Signbit(WasmCompatNearestF64(math.Copysign(0, -1))))
}
