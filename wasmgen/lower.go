package wasmgen

import (
	"github.com/wippyai/wasm-runtime/wasm"

	"github.com/clrwasm/clrwasm/cil"
	"github.com/clrwasm/clrwasm/clrmeta"
)

// lowerBody decodes a method-def row's CIL body and lowers it one-for-one
// into a Wasm instruction stream (spec.md §4.G phase 4). Only Nop, Ret,
// LdArg, LdStr and Call are lowered; every other decoded opcode is
// currently unsupported at this stage.
func (l *Lowerer) lowerBody(method *clrmeta.Row) ([]wasm.Instruction, error) {
	raw, err := l.body(method.Uint("RVA"))
	if err != nil {
		return nil, err
	}
	mb, err := cil.DecodeMethodBody(raw)
	if err != nil {
		return nil, err
	}

	out := make([]wasm.Instruction, 0, len(mb.Instructions))
	for _, inst := range mb.Instructions {
		wi, err := l.lowerInstruction(inst)
		if err != nil {
			return nil, err
		}
		out = append(out, wi...)
	}
	return out, nil
}

func (l *Lowerer) lowerInstruction(inst cil.Instruction) ([]wasm.Instruction, error) {
	switch inst.Opcode {
	case cil.OpNop:
		return []wasm.Instruction{{Opcode: wasm.OpNop}}, nil
	case cil.OpRet:
		return []wasm.Instruction{{Opcode: wasm.OpReturn}}, nil
	case cil.OpLdArg0, cil.OpLdArg1, cil.OpLdArg2, cil.OpLdArg3:
		return []wasm.Instruction{{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: inst.Arg}}}, nil
	case cil.OpLdStr:
		return l.lowerLdStr(inst.Arg)
	case cil.OpCall:
		return l.lowerCall(inst.Arg)
	}
	return nil, ErrUnsupportedOpcode
}

func (l *Lowerer) lowerLdStr(raw uint32) ([]wasm.Instruction, error) {
	token, err := clrmeta.DecodeToken(raw)
	if err != nil {
		return nil, err
	}
	off, ok := token.IsUserString()
	if !ok {
		return nil, ErrMalformedCallTarget
	}
	entry, ok := l.stringCache[clrmeta.UserStringIndex(off)]
	if !ok {
		return nil, clrmeta.ErrHeapDecodeError
	}
	return []wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(entry.dataOffset)}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(entry.byteLength)}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
	}, nil
}

func (l *Lowerer) lowerCall(raw uint32) ([]wasm.Instruction, error) {
	token, err := clrmeta.DecodeToken(raw)
	if err != nil {
		return nil, err
	}
	if row, ok := token.IsMethodDef(); ok {
		funcIdx, ok := l.methodCache[row]
		if !ok {
			return nil, ErrMalformedCallTarget
		}
		return []wasm.Instruction{{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: funcIdx}}}, nil
	}
	if row, ok := token.IsMemberRef(); ok {
		funcIdx, ok := l.memberRefCache[row]
		if !ok {
			return nil, ErrMalformedCallTarget
		}
		return []wasm.Instruction{{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: funcIdx}}}, nil
	}
	if _, ok := token.IsMethodSpec(); ok {
		return nil, ErrUnsupportedGenericCall
	}
	return nil, ErrMalformedCallTarget
}
