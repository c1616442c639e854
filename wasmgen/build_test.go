package wasmgen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clrwasm/clrwasm/clrmeta"
	"github.com/clrwasm/clrwasm/internal/testimage"
	"github.com/clrwasm/clrwasm/pefile"
	"github.com/clrwasm/clrwasm/wasmgen"
)

// noBody fails any test that tries to resolve a method body; scenarios with
// no MethodDef rows never call it.
func noBody(rva uint32) ([]byte, error) {
	panic("wasmgen_test: unexpected body read")
}

func decodeFixture(t *testing.T, raw []byte) *clrmeta.Image {
	t.Helper()
	img, err := clrmeta.Decode(raw, nil)
	require.NoError(t, err)
	return img
}

// bodyReader resolves RVAs against the raw fixture bytes the way the real
// compiler's pefile-backed reader would.
func bodyReader(t *testing.T, raw []byte) wasmgen.BodyReader {
	t.Helper()
	f, err := pefile.OpenBytes(raw)
	require.NoError(t, err)
	return func(rva uint32) ([]byte, error) {
		off, err := f.GetOffsetFromRva(rva)
		if err != nil {
			return nil, err
		}
		return f.ReadBytes(off, f.Size()-off)
	}
}

func u32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// tinyBody wraps instruction bytes in a tiny-format method-body header.
func tinyBody(instrs []byte) []byte {
	return append([]byte{byte(0x2 | len(instrs)<<2)}, instrs...)
}

func TestBuildEmptyModule(t *testing.T) {
	b := testimage.New()
	b.AddModuleRow(b.AddString("Empty"))
	img := decodeFixture(t, b.Build())

	mod, err := wasmgen.Build(img, noBody, nil)
	require.NoError(t, err)

	encoded := mod.Encode()
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D}, encoded[:4])
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, encoded[4:8])
}

func TestBuildHelloWorldImportAndCall(t *testing.T) {
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
	instrs = append(instrs, u32(0x0A000001)...) // MemberRef row 1
	instrs = append(instrs, 0x2A)                // ret
	rva := b.AddMethodBody(tinyBody(instrs))

	b.AddMethodDefRow(rva, 0, 0, mainName, mainSig, 0)
	b.AddTypeDefRow(0, programName, progNs, testimage.TypeDefOrRefTypeDef, 0, 0, 1)

	raw := b.Build()
	img := decodeFixture(t, raw)

	mod, err := wasmgen.Build(img, bodyReader(t, raw), nil)
	require.NoError(t, err)

	encoded := mod.Encode()
	assert.Contains(t, string(encoded), "WriteLine")
	assert.Contains(t, string(encoded), "Hello, world")
	assert.Contains(t, string(encoded), "Program::Main")
}

func TestBuildTwoMethodsOneCallsOther(t *testing.T) {
	b := testimage.New()
	b.AddModuleRow(b.AddString("Two"))

	typeName := b.AddString("Program")
	ns := b.AddString("")
	sigIdx := b.AddBlob(testimage.EncodeSignature(false))

	name1 := b.AddString("Main")
	instrs1 := []byte{0x28}
	instrs1 = append(instrs1, u32(0x06000002)...) // MethodDef row 2
	instrs1 = append(instrs1, 0x2A)
	rva1 := b.AddMethodBody(tinyBody(instrs1))

	name2 := b.AddString("Helper")
	rva2 := b.AddMethodBody(tinyBody([]byte{0x2A}))

	b.AddMethodDefRow(rva1, 0, 0, name1, sigIdx, 0)
	b.AddMethodDefRow(rva2, 0, 0, name2, sigIdx, 0)
	b.AddTypeDefRow(0, typeName, ns, testimage.TypeDefOrRefTypeDef, 0, 0, 1)

	raw := b.Build()
	img := decodeFixture(t, raw)

	mod, err := wasmgen.Build(img, bodyReader(t, raw), nil)
	require.NoError(t, err)

	encoded := mod.Encode()
	assert.Contains(t, string(encoded), "Program::Main")
	assert.Contains(t, string(encoded), "Program::Helper")
}

func TestBuildHasThisInstanceMethod(t *testing.T) {
	b := testimage.New()
	b.AddModuleRow(b.AddString("Inst"))

	typeName := b.AddString("Counter")
	ns := b.AddString("")
	methodName := b.AddString("Add")
	sigIdx := b.AddBlob(testimage.EncodeSignature(true, testimage.ElemI4))

	rva := b.AddMethodBody(tinyBody([]byte{0x2A}))

	b.AddMethodDefRow(rva, 0, 0, methodName, sigIdx, 0)
	b.AddTypeDefRow(0, typeName, ns, testimage.TypeDefOrRefTypeDef, 0, 0, 1)

	raw := b.Build()
	img := decodeFixture(t, raw)

	mod, err := wasmgen.Build(img, bodyReader(t, raw), nil)
	require.NoError(t, err)

	encoded := mod.Encode()
	assert.Contains(t, string(encoded), "Counter::Add")
}

func TestBuildLdArgDecodesAllFour(t *testing.T) {
	b := testimage.New()
	b.AddModuleRow(b.AddString("Args"))

	typeName := b.AddString("Program")
	ns := b.AddString("")
	methodName := b.AddString("Four")
	sigIdx := b.AddBlob(testimage.EncodeSignature(false,
		testimage.ElemI4, testimage.ElemI4, testimage.ElemI4, testimage.ElemI4))

	rva := b.AddMethodBody(tinyBody([]byte{0x02, 0x03, 0x04, 0x05, 0x2A}))

	b.AddMethodDefRow(rva, 0, 0, methodName, sigIdx, 0)
	b.AddTypeDefRow(0, typeName, ns, testimage.TypeDefOrRefTypeDef, 0, 0, 1)

	raw := b.Build()
	img := decodeFixture(t, raw)

	mod, err := wasmgen.Build(img, bodyReader(t, raw), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, mod.Encode())
}

func TestBuildUnknownOpcodeIsFatal(t *testing.T) {
	b := testimage.New()
	b.AddModuleRow(b.AddString("Bad"))

	typeName := b.AddString("Program")
	ns := b.AddString("")
	methodName := b.AddString("Broken")
	sigIdx := b.AddBlob(testimage.EncodeSignature(false))

	rva := b.AddMethodBody(tinyBody([]byte{0xEE}))

	b.AddMethodDefRow(rva, 0, 0, methodName, sigIdx, 0)
	b.AddTypeDefRow(0, typeName, ns, testimage.TypeDefOrRefTypeDef, 0, 0, 1)

	raw := b.Build()
	img := decodeFixture(t, raw)

	_, err := wasmgen.Build(img, bodyReader(t, raw), nil)
	assert.Error(t, err)
}
