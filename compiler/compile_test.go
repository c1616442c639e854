package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clrwasm/clrwasm/compiler"
	"github.com/clrwasm/clrwasm/internal/testimage"
)

func tinyBody(instrs []byte) []byte {
	return append([]byte{byte(0x2 | len(instrs)<<2)}, instrs...)
}

func u32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func TestCompileEmptyModule(t *testing.T) {
	b := testimage.New()
	b.AddModuleRow(b.AddString("Empty"))

	out, err := compiler.Compile(b.Build(), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}, out[:8])
}

func TestCompileHelloWorld(t *testing.T) {
	b := testimage.New()
	b.AddModuleRow(b.AddString("Hello"))

	consoleName := b.AddString("Console")
	systemNs := b.AddString("System")
	b.AddTypeRefRow(testimage.ResolutionScopeModule, 1, consoleName, systemNs)

	writeLineName := b.AddString("WriteLine")
	writeLineSig := b.AddBlob(testimage.EncodeSignature(false, testimage.ElemString))
	b.AddMemberRefRow(testimage.MemberRefParentTypeRef, 1, writeLineName, writeLineSig)

	programName := b.AddString("Program")
	progNs := b.AddString("")
	mainName := b.AddString("Main")
	mainSig := b.AddBlob(testimage.EncodeSignature(false))

	us := b.AddUserString("Hello, world")
	instrs := []byte{0x72}
	instrs = append(instrs, u32(0x70000000|us)...)
	instrs = append(instrs, 0x28)
	instrs = append(instrs, u32(0x0A000001)...)
	instrs = append(instrs, 0x2A)
	rva := b.AddMethodBody(tinyBody(instrs))

	b.AddMethodDefRow(rva, 0, 0, mainName, mainSig, 0)
	b.AddTypeDefRow(0, programName, progNs, testimage.TypeDefOrRefTypeDef, 0, 0, 1)

	out, err := compiler.Compile(b.Build(), nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "WriteLine")
	assert.Contains(t, string(out), "Hello, world")
}

func TestCompileRejectsUnsupportedOpcode(t *testing.T) {
	b := testimage.New()
	b.AddModuleRow(b.AddString("Bad"))

	typeName := b.AddString("Program")
	ns := b.AddString("")
	methodName := b.AddString("Broken")
	sigIdx := b.AddBlob(testimage.EncodeSignature(false))
	rva := b.AddMethodBody(tinyBody([]byte{0xEE}))

	b.AddMethodDefRow(rva, 0, 0, methodName, sigIdx, 0)
	b.AddTypeDefRow(0, typeName, ns, testimage.TypeDefOrRefTypeDef, 0, 0, 1)

	_, err := compiler.Compile(b.Build(), nil)
	assert.Error(t, err)
}

func TestCompileRejectsTruncatedImage(t *testing.T) {
	_, err := compiler.Compile([]byte{0x4D, 0x5A}, nil)
	assert.Error(t, err)
}
