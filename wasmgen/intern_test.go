package wasmgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clrwasm/clrwasm/clrmeta"
	"github.com/clrwasm/clrwasm/internal/testimage"
)

// tinyBody wraps instruction bytes in a tiny-format method-body header.
func tinyBody(instrs []byte) []byte {
	return append([]byte{byte(0x2 | len(instrs)<<2)}, instrs...)
}

func newLowerer(t *testing.T, raw []byte) (*Lowerer, *clrmeta.Image) {
	t.Helper()
	img, err := clrmeta.Decode(raw, nil)
	require.NoError(t, err)
	return &Lowerer{
		img:            img,
		mod:            &Module{},
		typeCache:      map[string]uint32{},
		signatureCache: map[clrmeta.BlobIndex]uint32{},
		stringCache:    map[clrmeta.UserStringIndex]stringCacheEntry{},
		methodCache:    map[clrmeta.RowIndex]uint32{},
		memberRefCache: map[clrmeta.RowIndex]uint32{},
	}, img
}

// Two methods sharing the exact same flat signature shape must intern to
// the same type-section entry instead of appending a duplicate.
func TestInternSignatureDedupesIdenticalShapes(t *testing.T) {
	b := testimage.New()
	b.AddModuleRow(b.AddString("Two"))

	typeName := b.AddString("Program")
	ns := b.AddString("")
	sigIdx := b.AddBlob(testimage.EncodeSignature(false, testimage.ElemI4))

	name1 := b.AddString("First")
	rva1 := b.AddMethodBody(tinyBody([]byte{0x2A}))
	name2 := b.AddString("Second")
	rva2 := b.AddMethodBody(tinyBody([]byte{0x2A}))

	b.AddMethodDefRow(rva1, 0, 0, name1, sigIdx, 0)
	b.AddMethodDefRow(rva2, 0, 0, name2, sigIdx, 0)
	b.AddTypeDefRow(0, typeName, ns, testimage.TypeDefOrRefTypeDef, 0, 0, 1)

	l, _ := newLowerer(t, b.Build())
	pending, err := l.declareFunctionHeaders()
	require.NoError(t, err)
	require.Len(t, pending, 2)

	assert.Equal(t, pending[0].funcIdx, l.methodCache[clrmeta.RowIndex(1)])
	assert.Equal(t, pending[1].funcIdx, l.methodCache[clrmeta.RowIndex(2)])
	assert.Len(t, l.mod.types, 1, "identical signatures must share one type-section entry")
}

// A repeated blob key must resolve to the cached index without appending
// a second type-section entry, exercising internSignature directly.
func TestInternSignatureCacheHitSkipsDecode(t *testing.T) {
	b := testimage.New()
	b.AddModuleRow(b.AddString("One"))
	sigIdx := b.AddBlob(testimage.EncodeSignature(false, testimage.ElemString))

	l, _ := newLowerer(t, b.Build())

	idx1, err := l.internSignature(sigIdx)
	require.NoError(t, err)
	idx2, err := l.internSignature(sigIdx)
	require.NoError(t, err)

	assert.Equal(t, idx1, idx2)
	assert.Len(t, l.mod.types, 1)
}

// preloadStrings must assign each user-string heap entry a distinct,
// monotonically increasing data offset and a byte-accurate length.
func TestPreloadStringsAssignsDistinctOffsets(t *testing.T) {
	b := testimage.New()
	b.AddModuleRow(b.AddString("Strings"))
	us1 := b.AddUserString("Hi")
	us2 := b.AddUserString("World")

	l, _ := newLowerer(t, b.Build())
	require.NoError(t, l.preloadStrings())

	e1 := l.stringCache[clrmeta.UserStringIndex(us1)]
	e2 := l.stringCache[clrmeta.UserStringIndex(us2)]

	assert.Equal(t, uint32(len("Hi")), e1.byteLength)
	assert.Equal(t, uint32(len("World")), e2.byteLength)
	assert.NotEqual(t, e1.dataOffset, e2.dataOffset)
	assert.Len(t, l.mod.data, 2)
}

// declareImports must turn a TypeRef-parented MemberRef row into one import
// at function index 0, and memberRefCache must expose the same func index
// lowerCall will look up.
func TestDeclareImportsPopulatesMemberRefCache(t *testing.T) {
	b := testimage.New()
	b.AddModuleRow(b.AddString("Imports"))

	consoleName := b.AddString("Console")
	systemNs := b.AddString("System")
	b.AddTypeRefRow(testimage.ResolutionScopeModule, 1, consoleName, systemNs)

	writeLineName := b.AddString("WriteLine")
	sigIdx := b.AddBlob(testimage.EncodeSignature(false, testimage.ElemString))
	b.AddMemberRefRow(testimage.MemberRefParentTypeRef, 1, writeLineName, sigIdx)

	l, _ := newLowerer(t, b.Build())
	require.NoError(t, l.declareImports())

	funcIdx, ok := l.memberRefCache[clrmeta.RowIndex(1)]
	require.True(t, ok)
	assert.Equal(t, uint32(0), funcIdx)
	assert.Len(t, l.mod.imports, 1)
	assert.Equal(t, 1, l.importCount)
}
