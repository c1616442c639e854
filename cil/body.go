package cil

import "encoding/binary"

// Instruction is one decoded CIL instruction. Arg's meaning depends on
// Opcode: the implicit argument index for LdArg0-3, a metadata token for
// LdStr/Call, a signed branch displacement (reinterpreted from the raw
// little-endian bits) for the branch family, and unused otherwise.
type Instruction struct {
	Opcode Opcode
	Arg    uint32
}

// MethodBody is the decoded instruction stream of a tiny-format method.
type MethodBody struct {
	Instructions []Instruction
}

// tinyFormatTag is the low 2 bits of the method body header selecting the
// tiny format; the fat format (0x3) is not decoded by this core.
const tinyFormatTag = 0x2

// DecodeMethodBody decodes a tiny-format CIL method body: a one-byte
// header (format tag in the low 2 bits, code length in the remaining 6)
// followed by exactly that many bytes of instruction stream.
func DecodeMethodBody(data []byte) (MethodBody, error) {
	if len(data) < 1 {
		return MethodBody{}, ErrBadInput
	}
	header := data[0]
	if header&0x3 != tinyFormatTag {
		return MethodBody{}, ErrBadInput
	}
	codeLength := int(header >> 2)
	body := data[1:]
	if len(body) < codeLength {
		return MethodBody{}, ErrBadInput
	}
	body = body[:codeLength]

	var mb MethodBody
	cursor := 0
	for cursor < len(body) {
		b := body[cursor]
		if b == extendedPrefix {
			return MethodBody{}, ErrUnsupportedOpcode
		}
		info, ok := singleByte[b]
		if !ok {
			return MethodBody{}, ErrUnsupportedOpcode
		}
		cursor++

		inst := Instruction{Opcode: info.op}
		switch info.operand {
		case operandImplicit:
			inst.Arg = info.arg
		case operandToken, operandBranch:
			if cursor+4 > len(body) {
				return MethodBody{}, ErrBadInput
			}
			inst.Arg = binary.LittleEndian.Uint32(body[cursor : cursor+4])
			cursor += 4
		}
		mb.Instructions = append(mb.Instructions, inst)
	}
	return mb, nil
}
