// Package moremath has helpers for the float corner cases where the Go
// standard library and the WebAssembly spec disagree.
package moremath

import "math"

// WasmCompatMin is the Wasm-compatible variant of math.Min. We borrow from
// the original with a change that either one of NaN results in NaN even if
// another is -Inf.
// https://github.com/golang/go/blob/1d20a362d0ca4898d77865e314ef6f73582daef0/src/math/dim.go#L74-L91
func WasmCompatMin(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, -1) || math.IsInf(y, -1):
		return math.Inf(-1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return x
		}
		return y
	}
	if x < y {
		return x
	}
	return y
}

// WasmCompatMax is the Wasm-compatible variant of math.Max. We borrow from
// the original with a change that either one of NaN results in NaN even if
// another is Inf.
// https://github.com/golang/go/blob/1d20a362d0ca4898d77865e314ef6f73582daef0/src/math/dim.go#L42-L59
func WasmCompatMax(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, 1) || math.IsInf(y, 1):
		return math.Inf(1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return y
		}
		return x
	}
	if x > y {
		return x
	}
	return y
}

// WasmCompatNearestF32 rounds to the nearest integer, ties to even, as the
// Wasm spec requires. math.Round rounds ties away from zero so it cannot be
// used here.
// Borrowed from https://github.com/wasmerio/wasmer/blob/703bb4ee2ffb17b2929a194fc045a7e351b696e2/lib/vm/src/libcalls.rs#L77
func WasmCompatNearestF32(f float32) float32 {
	if f != -0 && f != 0 {
		ceil := float32(math.Ceil(float64(f)))
		floor := float32(math.Floor(float64(f)))
		distToCeil := math.Abs(float64(f - ceil))
		distToFloor := math.Abs(float64(f - floor))
		h := ceil / 2.0
		if distToCeil < distToFloor {
			f = ceil
		} else if distToCeil == distToFloor && float32(math.Floor(float64(h))) == h {
			f = ceil
		} else {
			f = floor
		}
	}
	return f
}

// WasmCompatNearestF64 is the float64 variant of WasmCompatNearestF32.
// Borrowed from https://github.com/wasmerio/wasmer/blob/703bb4ee2ffb17b2929a194fc045a7e351b696e2/lib/vm/src/libcalls.rs#L77
func WasmCompatNearestF64(f float64) float64 {
	if f != -0 && f != 0 {
		ceil := math.Ceil(f)
		floor := math.Floor(f)
		distToCeil := math.Abs(f - ceil)
		distToFloor := math.Abs(f - floor)
		h := ceil / 2.0
		if distToCeil < distToFloor {
			f = ceil
		} else if distToCeil == distToFloor && math.Floor(h) == h {
			f = ceil
		} else {
			f = floor
		}
	}
	return f
}
