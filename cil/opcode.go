package cil

// Opcode identifies one instruction from the required CIL subset
// (spec.md §4.F). Every other byte, whether a real ECMA-335 opcode outside
// the subset or a byte with no ECMA-335 meaning, decodes as
// ErrUnsupportedOpcode.
type Opcode uint16

const (
	OpNop Opcode = iota
	OpBreak
	OpRet

	OpLdArg0
	OpLdArg1
	OpLdArg2
	OpLdArg3

	OpLdStr
	OpCall

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpDivUn
	OpRem
	OpRemUn
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpShrUn
	OpNeg
	OpNot
	OpAddOvf
	OpAddOvfUn
	OpSubOvf
	OpSubOvfUn
	OpMulOvf
	OpMulOvfUn

	OpBr
	OpBrFalse
	OpBrTrue
	OpBeq
	OpBgeUn
	OpBgtUn
	OpBleUn
	OpBltUn
	OpBneUn
	OpBge
	OpBgt
	OpBle
	OpBlt
)

// operandKind describes how many bytes (and of what shape) follow the
// opcode byte in the instruction stream.
type operandKind int

const (
	operandNone      operandKind = iota
	operandImplicit              // argument index folded into the opcode itself
	operandToken                 // 4-byte metadata token
	operandBranch                // 4-byte signed displacement
)

type opcodeInfo struct {
	op      Opcode
	operand operandKind
	arg     uint32 // implicit argument index, when operand == operandImplicit
}

// singleByte is the one-byte opcode dispatch table for the required
// subset. ECMA-335 byte values; a byte with no entry here, including the
// 0xFE extended prefix checked separately in body.go, is
// ErrUnsupportedOpcode.
var singleByte = map[byte]opcodeInfo{
	0x00: {op: OpNop, operand: operandNone},
	0x01: {op: OpBreak, operand: operandNone},
	0x2A: {op: OpRet, operand: operandNone},

	0x02: {op: OpLdArg0, operand: operandImplicit, arg: 0},
	0x03: {op: OpLdArg1, operand: operandImplicit, arg: 1},
	0x04: {op: OpLdArg2, operand: operandImplicit, arg: 2},
	0x05: {op: OpLdArg3, operand: operandImplicit, arg: 3},

	0x72: {op: OpLdStr, operand: operandToken},
	0x28: {op: OpCall, operand: operandToken},

	0x58: {op: OpAdd, operand: operandNone},
	0x59: {op: OpSub, operand: operandNone},
	0x5A: {op: OpMul, operand: operandNone},
	0x5B: {op: OpDiv, operand: operandNone},
	0x5C: {op: OpDivUn, operand: operandNone},
	0x5D: {op: OpRem, operand: operandNone},
	0x5E: {op: OpRemUn, operand: operandNone},
	0x5F: {op: OpAnd, operand: operandNone},
	0x60: {op: OpOr, operand: operandNone},
	0x61: {op: OpXor, operand: operandNone},
	0x62: {op: OpShl, operand: operandNone},
	0x63: {op: OpShr, operand: operandNone},
	0x64: {op: OpShrUn, operand: operandNone},
	0x65: {op: OpNeg, operand: operandNone},
	0x66: {op: OpNot, operand: operandNone},
	0xD6: {op: OpAddOvf, operand: operandNone},
	0xD7: {op: OpAddOvfUn, operand: operandNone},
	0xDA: {op: OpSubOvf, operand: operandNone},
	0xDB: {op: OpSubOvfUn, operand: operandNone},
	0xD8: {op: OpMulOvf, operand: operandNone},
	0xD9: {op: OpMulOvfUn, operand: operandNone},

	0x38: {op: OpBr, operand: operandBranch},
	0x39: {op: OpBrFalse, operand: operandBranch},
	0x3A: {op: OpBrTrue, operand: operandBranch},
	0x3B: {op: OpBeq, operand: operandBranch},
	0x3C: {op: OpBge, operand: operandBranch},
	0x3D: {op: OpBgt, operand: operandBranch},
	0x3E: {op: OpBle, operand: operandBranch},
	0x3F: {op: OpBlt, operand: operandBranch},
	0x40: {op: OpBneUn, operand: operandBranch},
	0x41: {op: OpBgeUn, operand: operandBranch},
	0x42: {op: OpBgtUn, operand: operandBranch},
	0x43: {op: OpBleUn, operand: operandBranch},
	0x44: {op: OpBltUn, operand: operandBranch},
}

// extendedPrefix is the two-byte (0xFE-prefixed) opcode space. ECMA-335
// defines real opcodes here (ceq, cgt, ldarg, ...); none are in the
// required subset, so any 0xFE sequence this core sees is fatal.
const extendedPrefix byte = 0xFE
