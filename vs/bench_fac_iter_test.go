//go:build amd64 && cgo && !windows

// Wasmtime can only be used in amd64 with CGO
// Wasmer doesn't link on Windows
package vs

import (
	"errors"
	"testing"

	"github.com/birros/go-wasm3"
	"github.com/bytecodealliance/wasmtime-go"
	"github.com/stretchr/testify/require"
	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/wasmtree/wasmtree/wasm"
	"github.com/wasmtree/wasmtree/wasm/leb128"
	"github.com/wasmtree/wasmtree/wasm/treevm"
)

// facIterBody is the body of the iterative factorial, equivalent to this text
// format function:
//
//	(func $fac-iter (param $n i64) (result i64)
//	  (local $i i64) (local $res i64)
//	  (local.set $i (local.get $n))
//	  (local.set $res (i64.const 1))
//	  (block $done
//	    (loop $loop
//	      (br_if $done (i64.eqz (local.get $i)))
//	      (local.set $res (i64.mul (local.get $res) (local.get $i)))
//	      (local.set $i (i64.sub (local.get $i) (i64.const 1)))
//	      (br $loop)))
//	  (local.get $res))
var facIterBody = []byte{
	wasm.OpcodeLocalGet, 0,
	wasm.OpcodeLocalSet, 1,
	wasm.OpcodeI64Const, 1,
	wasm.OpcodeLocalSet, 2,
	wasm.OpcodeBlock, 0x40,
	wasm.OpcodeLoop, 0x40,
	wasm.OpcodeLocalGet, 1,
	wasm.OpcodeI64Eqz,
	wasm.OpcodeBrIf, 1,
	wasm.OpcodeLocalGet, 2,
	wasm.OpcodeLocalGet, 1,
	wasm.OpcodeI64Mul,
	wasm.OpcodeLocalSet, 2,
	wasm.OpcodeLocalGet, 1,
	wasm.OpcodeI64Const, 1,
	wasm.OpcodeI64Sub,
	wasm.OpcodeLocalSet, 1,
	wasm.OpcodeBr, 0,
	wasm.OpcodeEnd,
	wasm.OpcodeEnd,
	wasm.OpcodeLocalGet, 2,
	wasm.OpcodeEnd,
}

// facIterWasm wraps facIterBody in a minimal binary module exporting
// "fac-iter", so that the other runtimes execute exactly the same function.
func facIterWasm() []byte {
	section := func(id byte, contents []byte) []byte {
		out := append([]byte{id}, leb128.EncodeUint32(uint32(len(contents)))...)
		return append(out, contents...)
	}

	code := append([]byte{
		0x01, 0x02, wasm.ValueTypeI64, // one run of two i64 locals
	}, facIterBody...)
	code = append(leb128.EncodeUint32(uint32(len(code))), code...)

	bin := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00} // magic and version
	bin = append(bin, section(0x01, []byte{ // type section: (i64) -> (i64)
		0x01, 0x60, 0x01, wasm.ValueTypeI64, 0x01, wasm.ValueTypeI64,
	})...)
	bin = append(bin, section(0x03, []byte{0x01, 0x00})...) // function section
	export := append([]byte{0x01, byte(len("fac-iter"))}, "fac-iter"...)
	export = append(export, 0x00, 0x00) // function export, index 0
	bin = append(bin, section(0x07, export)...)
	bin = append(bin, section(0x0a, append([]byte{0x01}, code...))...) // code section
	return bin
}

// TestFacIter ensures that the code in BenchmarkFacIter works as expected.
func TestFacIter(t *testing.T) {
	const in = 30
	expValue := uint64(0x865df5dd54000000)

	t.Run("treevm", func(t *testing.T) {
		e, fn, err := newTreevmForFacIterBench()
		require.NoError(t, err)

		for i := 0; i < 10000; i++ {
			res, err := e.Call(fn, in)
			require.NoError(t, err)
			require.Equal(t, expValue, res[0])
		}
	})

	t.Run("wasmer-go", func(t *testing.T) {
		store, instance, fn, err := newWasmerForFacIterBench()
		require.NoError(t, err)
		defer store.Close()
		defer instance.Close()

		for i := 0; i < 10000; i++ {
			res, err := fn(in)
			require.NoError(t, err)
			require.Equal(t, int64(expValue), res)
		}
	})

	t.Run("wasmtime-go", func(t *testing.T) {
		store, run, err := newWasmtimeForFacIterBench()
		require.NoError(t, err)
		for i := 0; i < 10000; i++ {
			res, err := run.Call(store, in)
			require.NoError(t, err)
			require.Equal(t, int64(expValue), res)
		}
	})

	t.Run("go-wasm3", func(t *testing.T) {
		env, runtime, run, err := newGoWasm3ForFacIterBench()
		require.NoError(t, err)
		defer env.Destroy()
		defer runtime.Destroy()

		for i := 0; i < 10000; i++ {
			res, err := run(in)
			require.NoError(t, err)
			require.Equal(t, int64(expValue), res[0].(int64))
		}
	})
}

// BenchmarkFacIter_Init tracks the time spent readying a function for use
func BenchmarkFacIter_Init(b *testing.B) {
	b.Run("treevm", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, _, err := newTreevmForFacIterBench(); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("wasmer-go", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			store, instance, _, err := newWasmerForFacIterBench()
			if err != nil {
				b.Fatal(err)
			}
			store.Close()
			instance.Close()
		}
	})

	b.Run("wasmtime-go", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, _, err := newWasmtimeForFacIterBench(); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("go-wasm3", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			env, runtime, _, err := newGoWasm3ForFacIterBench()
			if err != nil {
				b.Fatal(err)
			}
			runtime.Destroy()
			env.Destroy()
		}
	})
}

var facIterArgumentU64 uint64 = 30
var facIterArgumentI64 = int64(facIterArgumentU64)

// BenchmarkFacIter_Invoke benchmarks the time spent invoking a factorial
// calculation.
func BenchmarkFacIter_Invoke(b *testing.B) {
	b.Run("treevm", treevmFacIterInvoke)
	b.Run("wasmer-go", wasmerGoFacIterInvoke)
	b.Run("wasmtime-go", wasmtimeGoFacIterInvoke)
	b.Run("go-wasm3", goWasm3FacIterInvoke)
}

func treevmFacIterInvoke(b *testing.B) {
	e, fn, err := newTreevmForFacIterBench()
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err = e.Call(fn, facIterArgumentU64); err != nil {
			b.Fatal(err)
		}
	}
}

func wasmerGoFacIterInvoke(b *testing.B) {
	store, instance, fn, err := newWasmerForFacIterBench()
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()
	defer instance.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err = fn(facIterArgumentI64); err != nil {
			b.Fatal(err)
		}
	}
}

func wasmtimeGoFacIterInvoke(b *testing.B) {
	store, run, err := newWasmtimeForFacIterBench()
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err = run.Call(store, facIterArgumentI64); err != nil {
			b.Fatal(err)
		}
	}
}

func goWasm3FacIterInvoke(b *testing.B) {
	env, runtime, run, err := newGoWasm3ForFacIterBench()
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// go-wasm3 only maps the int type
		if _, err = run(int(facIterArgumentI64)); err != nil {
			b.Fatal(err)
		}
	}
	runtime.Destroy()
	env.Destroy()
}

func newTreevmForFacIterBench() (wasm.Engine, *wasm.FunctionInstance, error) {
	typ := &wasm.FunctionType{
		Params:  []wasm.ValueType{wasm.ValueTypeI64},
		Results: []wasm.ValueType{wasm.ValueTypeI64},
	}
	m := &wasm.ModuleInstance{Types: []*wasm.FunctionType{typ}}
	f := &wasm.FunctionInstance{
		Name:           "fac-iter",
		ModuleInstance: m,
		Body:           facIterBody,
		FunctionType:   typ,
		LocalTypes:     []wasm.ValueType{wasm.ValueTypeI64, wasm.ValueTypeI64},
	}
	m.Functions = []*wasm.FunctionInstance{f}

	e := treevm.NewEngine()
	if err := e.Compile(f); err != nil {
		return nil, nil, err
	}
	return e, f, nil
}

// newWasmerForFacIterBench returns the store and instance that scope the
// factorial function.
// Note: these should be closed
func newWasmerForFacIterBench() (*wasmer.Store, *wasmer.Instance, wasmer.NativeFunction, error) {
	store := wasmer.NewStore(wasmer.NewEngine())
	importObject := wasmer.NewImportObject()
	module, err := wasmer.NewModule(store, facIterWasm())
	if err != nil {
		return nil, nil, nil, err
	}
	instance, err := wasmer.NewInstance(module, importObject)
	if err != nil {
		return nil, nil, nil, err
	}
	f, err := instance.Exports.GetFunction("fac-iter")
	if err != nil {
		return nil, nil, nil, err
	}
	if f == nil {
		return nil, nil, nil, errors.New("not a function")
	}
	return store, instance, f, nil
}

func newWasmtimeForFacIterBench() (*wasmtime.Store, *wasmtime.Func, error) {
	store := wasmtime.NewStore(wasmtime.NewEngine())
	module, err := wasmtime.NewModule(store.Engine, facIterWasm())
	if err != nil {
		return nil, nil, err
	}

	instance, err := wasmtime.NewInstance(store, module, nil)
	if err != nil {
		return nil, nil, err
	}

	run := instance.GetFunc(store, "fac-iter")
	if run == nil {
		return nil, nil, errors.New("not a function")
	}
	return store, run, nil
}

func newGoWasm3ForFacIterBench() (*wasm3.Environment, *wasm3.Runtime, wasm3.FunctionWrapper, error) {
	env := wasm3.NewEnvironment()
	runtime := wasm3.NewRuntime(&wasm3.Config{
		Environment: env,
		StackSize:   64 * 1024,
	})

	module, err := runtime.ParseModule(facIterWasm())
	if err != nil {
		return nil, nil, nil, err
	}

	_, err = runtime.LoadModule(module)
	if err != nil {
		return nil, nil, nil, err
	}

	run, err := runtime.FindFunction("fac-iter")
	if err != nil {
		return nil, nil, nil, err
	}
	return env, runtime, run, nil
}
