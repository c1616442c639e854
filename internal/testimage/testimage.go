// Package testimage assembles minimal synthetic managed-code PE/CLI
// images for the compiler and wasmgen tests, the way clrmeta's own
// header_test.go hand-builds one image inline but shared across packages
// that can't reach clrmeta's unexported row internals.
package testimage

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// Tag values mirror clrmeta.Tag; duplicated here (rather than imported)
// so this package stays usable from clrmeta's own tests without an
// import cycle.
const (
	TagModule    byte = 0x00
	TagTypeRef   byte = 0x01
	TagTypeDef   byte = 0x02
	TagField     byte = 0x04
	TagMethodDef byte = 0x06
	TagParam     byte = 0x08
	TagMemberRef byte = 0x0A
)

// tagOrder is the ascending walk order decodeTableStream requires.
var tagOrder = []byte{TagModule, TagTypeRef, TagTypeDef, TagField, TagMethodDef, TagParam, TagMemberRef}

const (
	sectionRVA   = 0x2000
	sectionRaw   = 0x200
	metadataOff  = 0x100
	codeRegionOff = 0x800
)

// Builder accumulates heap content, table rows and method-body bytes for
// one synthetic image.
type Builder struct {
	strings []byte
	us      []byte
	blob    []byte
	guid    []byte

	rows map[byte][][]byte

	code []byte
}

// New returns a Builder with every heap's reserved zero-offset entry
// already in place.
func New() *Builder {
	return &Builder{
		strings: []byte{0},
		us:      []byte{0},
		blob:    []byte{0},
		rows:    map[byte][][]byte{},
	}
}

// AddString interns s into #Strings, returning its StringIndex.
func (b *Builder) AddString(s string) uint16 {
	off := len(b.strings)
	b.strings = append(b.strings, []byte(s)...)
	b.strings = append(b.strings, 0)
	return uint16(off)
}

// AddBlob interns data into #Blob with its compressed length prefix,
// returning its BlobIndex.
func (b *Builder) AddBlob(data []byte) uint16 {
	off := len(b.blob)
	b.blob = append(b.blob, encodeCompressed(uint32(len(data)))...)
	b.blob = append(b.blob, data...)
	return uint16(off)
}

// AddUserString interns s into #US as UTF-16LE with its compressed
// length prefix (which counts the trailing marker byte) and a trailing
// zero marker byte, returning its UserStringIndex.
func (b *Builder) AddUserString(s string) uint32 {
	off := len(b.us)
	units := utf16.Encode([]rune(s))
	payload := make([]byte, 0, len(units)*2)
	for _, u := range units {
		payload = append(payload, byte(u), byte(u>>8))
	}
	length := uint32(len(payload) + 1)
	b.us = append(b.us, encodeCompressed(length)...)
	b.us = append(b.us, payload...)
	b.us = append(b.us, 0)
	return uint32(off)
}

// AddMethodBody appends a tiny-format method body's bytes to the code
// region and returns its RVA, suitable for a MethodDef row's RVA column.
func (b *Builder) AddMethodBody(body []byte) uint32 {
	off := len(b.code)
	b.code = append(b.code, body...)
	return sectionRVA + codeRegionOff + uint32(off)
}

// AddRow appends one already-encoded row for tag, in the order rows of
// that tag will be emitted (1-based row index == call order).
func (b *Builder) AddRow(tag byte, row []byte) {
	b.rows[tag] = append(b.rows[tag], row)
}

// codedIndex packs a coded-index field the way clrmeta.decodeCodedIndex
// expects to unpack it: the table tag in the low tagBits bits, the 1-based
// row in the remaining high bits.
func codedIndex(tagBits uint8, tag, row uint16) uint16 {
	mask := uint16(1)<<tagBits - 1
	return row<<tagBits | tag&mask
}

func u16le(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func u32le(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }

// Coded-index tag values, matching clrmeta's codedResolutionScope,
// codedTypeDefOrRef and codedMemberRefParent candidate-table orderings.
const (
	ResolutionScopeModule      uint16 = 0
	ResolutionScopeModuleRef   uint16 = 1
	ResolutionScopeAssemblyRef uint16 = 2
	ResolutionScopeTypeRef     uint16 = 3

	TypeDefOrRefTypeDef  uint16 = 0
	TypeDefOrRefTypeRef  uint16 = 1
	TypeDefOrRefTypeSpec uint16 = 2

	MemberRefParentTypeDef   uint16 = 0
	MemberRefParentTypeRef   uint16 = 1
	MemberRefParentModuleRef uint16 = 2
	MemberRefParentMethodDef uint16 = 3
	MemberRefParentTypeSpec  uint16 = 4
)

// AddModuleRow packs and appends a Module row.
func (b *Builder) AddModuleRow(name uint16) {
	row := append([]byte{}, u16le(0)...)
	row = append(row, u16le(name)...)
	row = append(row, u16le(0)...) // Mvid
	row = append(row, u16le(0)...) // EncId
	row = append(row, u16le(0)...) // EncBaseId
	b.AddRow(TagModule, row)
}

// AddTypeRefRow packs and appends a TypeRef row. scopeTag is one of the
// ResolutionScope* constants.
func (b *Builder) AddTypeRefRow(scopeTag, scopeRow, typeName, typeNamespace uint16) {
	row := append([]byte{}, u16le(codedIndex(2, scopeTag, scopeRow))...)
	row = append(row, u16le(typeName)...)
	row = append(row, u16le(typeNamespace)...)
	b.AddRow(TagTypeRef, row)
}

// AddTypeDefRow packs and appends a TypeDef row. extendsTag is one of the
// TypeDefOrRef* constants; fieldList/methodList are the first owned row
// index of each (0 when this TypeDef owns none).
func (b *Builder) AddTypeDefRow(flags uint32, typeName, typeNamespace uint16, extendsTag, extendsRow uint16, fieldList, methodList uint16) {
	row := append([]byte{}, u32le(flags)...)
	row = append(row, u16le(typeName)...)
	row = append(row, u16le(typeNamespace)...)
	row = append(row, u16le(codedIndex(2, extendsTag, extendsRow))...)
	row = append(row, u16le(fieldList)...)
	row = append(row, u16le(methodList)...)
	b.AddRow(TagTypeDef, row)
}

// AddMethodDefRow packs and appends a MethodDef row.
func (b *Builder) AddMethodDefRow(rva uint32, implFlags, flags, name, signature, paramList uint16) {
	row := append([]byte{}, u32le(rva)...)
	row = append(row, u16le(implFlags)...)
	row = append(row, u16le(flags)...)
	row = append(row, u16le(name)...)
	row = append(row, u16le(signature)...)
	row = append(row, u16le(paramList)...)
	b.AddRow(TagMethodDef, row)
}

// AddMemberRefRow packs and appends a MemberRef row. classTag is one of the
// MemberRefParent* constants.
func (b *Builder) AddMemberRefRow(classTag, classRow, name, signature uint16) {
	row := append([]byte{}, u16le(codedIndex(3, classTag, classRow))...)
	row = append(row, u16le(name)...)
	row = append(row, u16le(signature)...)
	b.AddRow(TagMemberRef, row)
}

// Element type tags a MethodDefSig's Type productions carry, matching
// sig.ElementType's values for the primitive/string subset these fixtures
// exercise.
const (
	ElemVoid   byte = 0x01
	ElemI4     byte = 0x08
	ElemString byte = 0x0E
)

const sigHasThis byte = 0x20

// EncodeSignature packs a MethodDefSig blob: calling convention, param
// count, a void return, and one single-byte element-type tag per
// paramElemTypes entry (no custom mods, no byref params — this pipeline's
// fixtures never need them).
func EncodeSignature(hasThis bool, paramElemTypes ...byte) []byte {
	cc := byte(0)
	if hasThis {
		cc = sigHasThis
	}
	blob := []byte{cc, byte(len(paramElemTypes)), ElemVoid}
	blob = append(blob, paramElemTypes...)
	return blob
}

// Build assembles the full PE/CLI image bytes.
func (b *Builder) Build() []byte {
	tableBytes := b.buildTableStream()

	type streamDef struct {
		name    string
		content []byte
	}
	streams := []streamDef{
		{"#~", tableBytes},
		{"#Strings", b.strings},
		{"#US", b.us},
		{"#Blob", b.blob},
		{"#GUID", b.guid},
	}

	const preambleLen = 24
	headerSize := 0
	for _, s := range streams {
		headerSize += 8 + len(paddedName(s.name))
	}

	data := &bytes.Buffer{}
	dataStart := make([]uint32, len(streams))
	for i, s := range streams {
		dataStart[i] = uint32(data.Len())
		data.Write(s.content)
	}

	header := &bytes.Buffer{}
	for i, s := range streams {
		streamOff := uint32(preambleLen) + uint32(headerSize) + dataStart[i]
		binary.Write(header, binary.LittleEndian, streamOff)
		binary.Write(header, binary.LittleEndian, uint32(len(s.content)))
		header.Write(paddedName(s.name))
	}

	root := &bytes.Buffer{}
	binary.Write(root, binary.LittleEndian, uint32(0x424A5342))
	binary.Write(root, binary.LittleEndian, uint16(1))
	binary.Write(root, binary.LittleEndian, uint16(1))
	binary.Write(root, binary.LittleEndian, uint32(0))
	binary.Write(root, binary.LittleEndian, uint32(4))
	root.Write([]byte("v4\x00\x00"))
	binary.Write(root, binary.LittleEndian, uint16(0))
	binary.Write(root, binary.LittleEndian, uint16(uint16(len(streams))))
	root.Write(header.Bytes())
	root.Write(data.Bytes())

	metadataSize := uint32(root.Len())
	if metadataOff+metadataSize > codeRegionOff {
		panic("testimage: fixture metadata too large for reserved code region")
	}

	sectionSize := uint32(codeRegionOff) + uint32(len(b.code))

	buf := &bytes.Buffer{}
	writeDOSHeader(buf)
	binary.Write(buf, binary.LittleEndian, uint32(0x00004550))
	writeCOFFHeader(buf)
	writeOptionalHeader(buf, sectionRVA, clrHeaderSize)
	writeSectionHeader(buf, sectionRVA, sectionSize, sectionRaw)

	for uint32(buf.Len()) < sectionRaw {
		buf.WriteByte(0)
	}
	writeCLIHeader(buf, sectionRVA+metadataOff, metadataSize)

	for uint32(buf.Len()) < sectionRaw+metadataOff {
		buf.WriteByte(0)
	}
	buf.Write(root.Bytes())

	for uint32(buf.Len()) < sectionRaw+codeRegionOff {
		buf.WriteByte(0)
	}
	buf.Write(b.code)

	for uint32(buf.Len()) < sectionRaw+sectionSize {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func paddedName(name string) []byte {
	b := append([]byte(name), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func encodeCompressed(v uint32) []byte {
	switch {
	case v <= 0x7F:
		return []byte{byte(v)}
	case v <= 0x3FFF:
		x := uint16(v) | 0x8000
		return []byte{byte(x >> 8), byte(x)}
	default:
		x := v | 0xC0000000
		return []byte{byte(x >> 24), byte(x >> 16), byte(x >> 8), byte(x)}
	}
}

const clrHeaderSize = 72

type dosStub struct {
	Magic  uint16
	_      [29]uint16
	Lfanew uint32
}

type coffHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

type dataDir struct {
	VirtualAddress uint32
	Size           uint32
}

type optHeader32 struct {
	Magic                   uint16
	MajorLinkerVersion      uint8
	MinorLinkerVersion      uint8
	SizeOfCode              uint32
	SizeOfInitializedData   uint32
	SizeOfUninitializedData uint32
	AddressOfEntryPoint     uint32
	BaseOfCode              uint32
	BaseOfData              uint32
	ImageBase               uint32
	SectionAlignment        uint32
	FileAlignment           uint32
	MajorOSVersion          uint16
	MinorOSVersion          uint16
	MajorImageVersion       uint16
	MinorImageVersion       uint16
	MajorSubsystemVersion   uint16
	MinorSubsystemVersion   uint16
	Win32VersionValue       uint32
	SizeOfImage             uint32
	SizeOfHeaders           uint32
	CheckSum                uint32
	Subsystem               uint16
	DllCharacteristics      uint16
	SizeOfStackReserve      uint32
	SizeOfStackCommit       uint32
	SizeOfHeapReserve       uint32
	SizeOfHeapCommit        uint32
	LoaderFlags             uint32
	NumberOfRvaAndSizes     uint32
	DataDirectory           [16]dataDir
}

type sectionHdr struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLineNumbers uint32
	NumberOfRelocations  uint16
	NumberOfLineNumbers  uint16
	Characteristics      uint32
}

func writeDOSHeader(buf *bytes.Buffer) {
	dos := dosStub{Magic: 0x5A4D, Lfanew: 64}
	binary.Write(buf, binary.LittleEndian, dos)
}

func writeCOFFHeader(buf *bytes.Buffer) {
	binary.Write(buf, binary.LittleEndian, coffHeader{
		Machine:              0x14C,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(binary.Size(optHeader32{})),
	})
}

func writeOptionalHeader(buf *bytes.Buffer, clrHeaderRVA uint32, clrHeaderSz uint32) {
	oh := optHeader32{Magic: 0x10b, NumberOfRvaAndSizes: 16}
	oh.DataDirectory[14] = dataDir{VirtualAddress: clrHeaderRVA, Size: clrHeaderSz}
	binary.Write(buf, binary.LittleEndian, oh)
}

func writeSectionHeader(buf *bytes.Buffer, rva, size, raw uint32) {
	sh := sectionHdr{
		VirtualSize:      size,
		VirtualAddress:   rva,
		SizeOfRawData:    size,
		PointerToRawData: raw,
	}
	copy(sh.Name[:], ".text")
	binary.Write(buf, binary.LittleEndian, sh)
}

func writeCLIHeader(buf *bytes.Buffer, metadataRVA, metadataSize uint32) {
	binary.Write(buf, binary.LittleEndian, uint32(0x48))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(5))
	binary.Write(buf, binary.LittleEndian, dataDir{VirtualAddress: metadataRVA, Size: metadataSize})
	binary.Write(buf, binary.LittleEndian, uint32(1))
	binary.Write(buf, binary.LittleEndian, uint32(0))
	binary.Write(buf, binary.LittleEndian, dataDir{})
	binary.Write(buf, binary.LittleEndian, dataDir{})
	binary.Write(buf, binary.LittleEndian, uint64(0))
	binary.Write(buf, binary.LittleEndian, dataDir{})
	binary.Write(buf, binary.LittleEndian, uint64(0))
	binary.Write(buf, binary.LittleEndian, uint64(0))
}

func (b *Builder) buildTableStream() []byte {
	var valid uint64
	for tag := range b.rows {
		if len(b.rows[tag]) > 0 {
			valid |= 1 << uint(tag)
		}
	}

	buf := make([]byte, 24)
	for i := 0; i < 8; i++ {
		buf[8+i] = byte(valid >> (8 * i))
	}

	for _, tag := range tagOrder {
		if valid&(1<<uint(tag)) == 0 {
			continue
		}
		n := len(b.rows[tag])
		buf = append(buf, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
	for _, tag := range tagOrder {
		if valid&(1<<uint(tag)) == 0 {
			continue
		}
		for _, row := range b.rows[tag] {
			buf = append(buf, row...)
		}
	}
	return buf
}
