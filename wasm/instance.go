package wasm

type (
	// ModuleInstance represents an instantiated module: the runtime view an
	// executing function has of its own module. Instantiation and linking
	// happen upstream; the engine only reads these fields.
	ModuleInstance struct {
		Types     []*FunctionType
		Functions []*FunctionInstance
		Globals   []*GlobalInstance
		Memory    *MemoryInstance
		Table     *TableInstance
	}

	// FunctionInstance is a single callable function. Either Body holds a
	// pre-validated WebAssembly function body (a sequence of instructions
	// terminated by 0x0b), or HostFunction holds a Go implementation.
	FunctionInstance struct {
		Name           string
		ModuleInstance *ModuleInstance
		Body           []byte
		FunctionType   *FunctionType
		// LocalTypes are the types of the function's declared locals, not
		// including parameters.
		LocalTypes []ValueType
		// HostFunction is non-nil for functions implemented in Go.
		HostFunction HostFunction
	}

	// GlobalInstance is a global variable and its current value.
	GlobalInstance struct {
		Type *GlobalType
		// Val holds the global's value in the same representation as operand
		// stack slots: integers zero-extended, floats as raw bit patterns.
		Val uint64
	}

	// GlobalType holds a global's value type and mutability.
	GlobalType struct {
		ValType ValueType
		Mutable bool
	}

	// TableInstance is a function table. A nil element is an uninitialized
	// slot; calling through one traps.
	//
	// Note: in WebAssembly 1.0 (MVP) the only element type is funcref and a
	// module has at most one table.
	TableInstance struct {
		Table []*FunctionInstance
		Min   uint32
		Max   uint32
	}
)

// HostFunction is the signature of functions implemented in Go rather than
// WebAssembly bytecode. The engine passes the calling module instance so the
// host can reach its memory; params and results use the operand slot
// representation. Returning an error aborts the whole call like a trap.
type HostFunction func(m *ModuleInstance, params ...uint64) ([]uint64, error)

// IsHost returns true when the function is implemented in Go.
func (f *FunctionInstance) IsHost() bool {
	return f.HostFunction != nil
}
