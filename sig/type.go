package sig

import "github.com/clrwasm/clrwasm/cuint"

// ElementType is the tag byte that begins every Type production.
type ElementType uint8

// ECMA-335 II.23.1.16 element type tags; only the ones this pipeline's
// required subset dispatches on are named, the rest fail decode as
// UnsupportedSignature.
const (
	ElementTypeVoid       ElementType = 0x01
	ElementTypeBoolean    ElementType = 0x02
	ElementTypeChar       ElementType = 0x03
	ElementTypeI1         ElementType = 0x04
	ElementTypeU1         ElementType = 0x05
	ElementTypeI2         ElementType = 0x06
	ElementTypeU2         ElementType = 0x07
	ElementTypeI4         ElementType = 0x08
	ElementTypeU4         ElementType = 0x09
	ElementTypeI8         ElementType = 0x0A
	ElementTypeU8         ElementType = 0x0B
	ElementTypeR4         ElementType = 0x0C
	ElementTypeR8         ElementType = 0x0D
	ElementTypeString     ElementType = 0x0E
	ElementTypeByRef      ElementType = 0x10
	ElementTypeVar        ElementType = 0x13
	ElementTypeTypedByref ElementType = 0x16
	ElementTypeI          ElementType = 0x18
	ElementTypeU          ElementType = 0x19
	ElementTypeSzArray    ElementType = 0x1D
	ElementTypeCmodReqd   ElementType = 0x1F
	ElementTypeCmodOpt    ElementType = 0x20
)

// IsPrimitive reports whether e is one of the primitive element types the
// Wasm lowering table (spec.md §6) maps one-to-one.
func (e ElementType) IsPrimitive() bool {
	switch e {
	case ElementTypeBoolean, ElementTypeChar, ElementTypeI1, ElementTypeU1,
		ElementTypeI2, ElementTypeU2, ElementTypeI4, ElementTypeU4,
		ElementTypeI8, ElementTypeU8, ElementTypeR4, ElementTypeR8,
		ElementTypeI, ElementTypeU:
		return true
	}
	return false
}

// CustomMod is an optional modifier prefix: CmodOpt or CmodReqd followed
// by a TypeDefOrRefOrSpecEncoded token.
type CustomMod struct {
	Required bool
	Type     TypeDefOrRefOrSpec
}

// TypeDefOrRefOrSpec is the compressed-token form custom modifiers and
// valuetype/class references carry: tag in the low 2 bits, row in the
// high 24 bits, tags 0/1/2 selecting TypeDef/TypeRef/TypeSpec.
type TypeDefOrRefOrSpec struct {
	Tag uint8
	Row uint32
}

func decodeTypeDefOrRefOrSpec(raw uint32) TypeDefOrRefOrSpec {
	return TypeDefOrRefOrSpec{Tag: uint8(raw & 0x3), Row: raw >> 2}
}

// Type is a decoded Type production: the element tag plus whatever payload
// that tag carries. Only the fields relevant to the dispatched tag are
// populated.
type Type struct {
	Elem ElementType
	Mods []CustomMod

	ArrayElem *Type  // SzArray
	VarNumber uint32 // Var
}

// RetType is a MethodDefSig's return production.
type RetType struct {
	Void    bool
	ByRef   bool
	Type    *Type
	Mods    []CustomMod
}

// Param is a MethodDefSig's parameter production: identical to RetType
// minus the Void case.
type Param struct {
	ByRef bool
	Type  *Type
	Mods  []CustomMod
}

// MethodDefSig is a fully decoded method signature.
type MethodDefSig struct {
	CallingConvention CallingConvention
	ParamCount        uint32
	Ret               RetType
	Params            []Param
}

// DecodeMethodDefSig decodes a MethodDefSig from the front of blob.
func DecodeMethodDefSig(blob []byte) (MethodDefSig, error) {
	var sig MethodDefSig
	if len(blob) < 1 {
		return sig, ErrBadInput
	}
	sig.CallingConvention = CallingConvention(blob[0])
	cursor := 1

	count, n, err := cuint.Decode(blob[cursor:])
	if err != nil {
		return sig, ErrBadInput
	}
	sig.ParamCount = count
	cursor += n

	ret, n, err := decodeRetType(blob[cursor:])
	if err != nil {
		return sig, err
	}
	sig.Ret = ret
	cursor += n

	sig.Params = make([]Param, count)
	for i := uint32(0); i < count; i++ {
		p, n, err := decodeParam(blob[cursor:])
		if err != nil {
			return sig, err
		}
		sig.Params[i] = p
		cursor += n
	}
	return sig, nil
}

func decodeRetType(b []byte) (RetType, int, error) {
	mods, n, err := decodeCustomMods(b)
	if err != nil {
		return RetType{}, 0, err
	}
	if n >= len(b) {
		return RetType{}, 0, ErrBadInput
	}
	tag := ElementType(b[n])
	switch tag {
	case ElementTypeVoid, ElementTypeTypedByref:
		return RetType{Void: tag == ElementTypeVoid, Mods: mods}, n + 1, nil
	case ElementTypeByRef:
		typ, tn, err := decodeType(b[n+1:])
		if err != nil {
			return RetType{}, 0, err
		}
		return RetType{ByRef: true, Type: &typ, Mods: mods}, n + 1 + tn, nil
	default:
		typ, tn, err := decodeType(b[n:])
		if err != nil {
			return RetType{}, 0, err
		}
		return RetType{Type: &typ, Mods: mods}, n + tn, nil
	}
}

func decodeParam(b []byte) (Param, int, error) {
	mods, n, err := decodeCustomMods(b)
	if err != nil {
		return Param{}, 0, err
	}
	if n >= len(b) {
		return Param{}, 0, ErrBadInput
	}
	tag := ElementType(b[n])
	if tag == ElementTypeByRef {
		typ, tn, err := decodeType(b[n+1:])
		if err != nil {
			return Param{}, 0, err
		}
		return Param{ByRef: true, Type: &typ, Mods: mods}, n + 1 + tn, nil
	}
	typ, tn, err := decodeType(b[n:])
	if err != nil {
		return Param{}, 0, err
	}
	return Param{Type: &typ, Mods: mods}, n + tn, nil
}

// decodeCustomMods consumes zero or more leading CmodOpt/CmodReqd prefixes,
// tolerating an empty list, and returns how many bytes were consumed.
func decodeCustomMods(b []byte) ([]CustomMod, int, error) {
	var mods []CustomMod
	cursor := 0
	for cursor < len(b) {
		tag := ElementType(b[cursor])
		if tag != ElementTypeCmodOpt && tag != ElementTypeCmodReqd {
			break
		}
		cursor++
		token, n, err := cuint.Decode(b[cursor:])
		if err != nil {
			return nil, 0, ErrBadInput
		}
		cursor += n
		mods = append(mods, CustomMod{Required: tag == ElementTypeCmodReqd, Type: decodeTypeDefOrRefOrSpec(token)})
	}
	return mods, cursor, nil
}

// decodeType decodes a Type production starting at b[0].
func decodeType(b []byte) (Type, int, error) {
	if len(b) < 1 {
		return Type{}, 0, ErrBadInput
	}
	tag := ElementType(b[0])
	switch {
	case tag.IsPrimitive() || tag == ElementTypeString:
		return Type{Elem: tag}, 1, nil
	case tag == ElementTypeSzArray:
		mods, mn, err := decodeCustomMods(b[1:])
		if err != nil {
			return Type{}, 0, err
		}
		elem, en, err := decodeType(b[1+mn:])
		if err != nil {
			return Type{}, 0, err
		}
		return Type{Elem: tag, ArrayElem: &elem, Mods: mods}, 1 + mn + en, nil
	case tag == ElementTypeVar:
		n, consumed, err := cuint.Decode(b[1:])
		if err != nil {
			return Type{}, 0, ErrBadInput
		}
		return Type{Elem: tag, VarNumber: n}, 1 + consumed, nil
	default:
		return Type{}, 0, ErrUnsupportedSignature
	}
}
