package wasm

import "strings"

// FunctionType is a possibly empty function signature.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#function-types%E2%91%A0
type FunctionType struct {
	// Params are the possibly empty sequence of value types accepted by a
	// function with this signature.
	Params []ValueType

	// Results are the possibly empty sequence of value types returned by a
	// function with this signature.
	//
	// Note: in WebAssembly 1.0 (MVP), there can be at most one result.
	Results []ValueType
}

// EqualTo returns true when the two signatures have identical parameter and
// result types. call_indirect uses this for its runtime type check.
func (t *FunctionType) EqualTo(other *FunctionType) bool {
	if len(t.Params) != len(other.Params) || len(t.Results) != len(other.Results) {
		return false
	}
	for i, p := range t.Params {
		if other.Params[i] != p {
			return false
		}
	}
	for i, r := range t.Results {
		if other.Results[i] != r {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (t *FunctionType) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, p := range t.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(ValueTypeName(p))
	}
	sb.WriteString(")->(")
	for i, r := range t.Results {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(ValueTypeName(r))
	}
	sb.WriteByte(')')
	return sb.String()
}
