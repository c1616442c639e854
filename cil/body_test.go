package cil

import "testing"

func TestDecodeMethodBodyLdArgRet(t *testing.T) {
	// tiny header: format=0b10, code length=2 -> 0x2|(2<<2) = 0x0A
	data := []byte{0x0A, 0x02, 0x2A}
	got, err := DecodeMethodBody(data)
	if err != nil {
		t.Fatalf("DecodeMethodBody: %v", err)
	}
	want := []Instruction{
		{Opcode: OpLdArg0, Arg: 0},
		{Opcode: OpRet},
	}
	if len(got.Instructions) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(got.Instructions), len(want))
	}
	for i := range want {
		if got.Instructions[i] != want[i] {
			t.Fatalf("instruction %d = %+v, want %+v", i, got.Instructions[i], want[i])
		}
	}
}

func TestDecodeMethodBodyUnsupportedOpcode(t *testing.T) {
	// tiny header: format=0b10, code length=1 -> 0x2|(1<<2) = 0x06
	data := []byte{0x06, 0xEE}
	_, err := DecodeMethodBody(data)
	if err != ErrUnsupportedOpcode {
		t.Fatalf("DecodeMethodBody() err = %v, want ErrUnsupportedOpcode", err)
	}
}

func TestDecodeMethodBodyCallToken(t *testing.T) {
	// call (0x28) with a 4-byte little-endian MethodDef token, then ret.
	data := []byte{
		0x2 | (6 << 2),
		0x28, 0x01, 0x00, 0x00, 0x06,
		0x2A,
	}
	got, err := DecodeMethodBody(data)
	if err != nil {
		t.Fatalf("DecodeMethodBody: %v", err)
	}
	if len(got.Instructions) != 2 {
		t.Fatalf("got %d instructions, want 2", len(got.Instructions))
	}
	call := got.Instructions[0]
	if call.Opcode != OpCall || call.Arg != 0x06000001 {
		t.Fatalf("call instruction = %+v", call)
	}
}

func TestDecodeMethodBodyBranchDisplacement(t *testing.T) {
	// br (0x38) with a negative 32-bit displacement, then ret.
	data := []byte{
		0x2 | (6 << 2),
		0x38, 0xFC, 0xFF, 0xFF, 0xFF, // -4
		0x2A,
	}
	got, err := DecodeMethodBody(data)
	if err != nil {
		t.Fatalf("DecodeMethodBody: %v", err)
	}
	br := got.Instructions[0]
	if br.Opcode != OpBr || int32(br.Arg) != -4 {
		t.Fatalf("br instruction = %+v", br)
	}
}

func TestDecodeMethodBodyRejectsFatFormat(t *testing.T) {
	data := []byte{0x3, 0x30, 0x00, 0x00, 0x00}
	_, err := DecodeMethodBody(data)
	if err != ErrBadInput {
		t.Fatalf("DecodeMethodBody() err = %v, want ErrBadInput", err)
	}
}

func TestDecodeMethodBodyTruncated(t *testing.T) {
	data := []byte{0x2 | (4 << 2), 0x72, 0x01, 0x00}
	_, err := DecodeMethodBody(data)
	if err != ErrBadInput {
		t.Fatalf("DecodeMethodBody() err = %v, want ErrBadInput", err)
	}
}
