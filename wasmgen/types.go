package wasmgen

import (
	"github.com/wippyai/wasm-runtime/wasm"

	"github.com/clrwasm/clrwasm/sig"
)

// lowerValueType maps a primitive managed element type to its Wasm value
// type per spec.md §6's fixed table. Only the element kinds the signature
// decoder itself recognises are ever passed in.
func lowerValueType(e sig.ElementType) (wasm.ValType, bool) {
	switch e {
	case sig.ElementTypeBoolean, sig.ElementTypeChar, sig.ElementTypeI1, sig.ElementTypeU1,
		sig.ElementTypeI2, sig.ElementTypeU2, sig.ElementTypeI4, sig.ElementTypeU4:
		return wasm.ValI32, true
	case sig.ElementTypeI8, sig.ElementTypeU8:
		return wasm.ValI64, true
	case sig.ElementTypeR4:
		return wasm.ValF32, true
	case sig.ElementTypeR8:
		return wasm.ValF64, true
	case sig.ElementTypeI, sig.ElementTypeU:
		return wasm.ValI32, true
	}
	return 0, false
}

// lowerType lowers one managed Type production to zero or more Wasm value
// types: a primitive to one slot, String to three (pointer, length,
// capacity), SzArray to two (pointer, length).
func lowerType(t *sig.Type) ([]wasm.ValType, error) {
	if t == nil {
		return nil, ErrUnsupportedSignature
	}
	if t.Elem == sig.ElementTypeString {
		return []wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32}, nil
	}
	if t.Elem == sig.ElementTypeSzArray {
		return []wasm.ValType{wasm.ValI32, wasm.ValI32}, nil
	}
	if v, ok := lowerValueType(t.Elem); ok {
		return []wasm.ValType{v}, nil
	}
	return nil, ErrUnsupportedSignature
}

// lowerParam lowers one parameter or return production. ByRef always
// collapses to a single i32 pointer slot regardless of the pointee type.
func lowerParam(byRef bool, t *sig.Type) ([]wasm.ValType, error) {
	if byRef {
		return []wasm.ValType{wasm.ValI32}, nil
	}
	return lowerType(t)
}

// lowerSignature lowers a decoded MethodDefSig into its flat Wasm function
// type, prepending a leading i32 `this` slot when the calling convention
// carries HAS_THIS (spec.md §4.G).
func lowerSignature(ms sig.MethodDefSig) (wasm.FuncType, error) {
	var ft wasm.FuncType
	if ms.CallingConvention.HasThis() {
		ft.Params = append(ft.Params, wasm.ValI32)
	}
	for _, p := range ms.Params {
		vs, err := lowerParam(p.ByRef, p.Type)
		if err != nil {
			return wasm.FuncType{}, err
		}
		ft.Params = append(ft.Params, vs...)
	}
	if !ms.Ret.Void {
		return wasm.FuncType{}, ErrUnsupportedSignature
	}
	return ft, nil
}
