package clrmeta

// StringIndex, GUIDIndex and BlobIndex are heap offsets, always decoded as
// fixed 16-bit little-endian values per the index decoder's stated subset
// (spec.md §4.D) — zero means absent.
type StringIndex uint16

// GUIDIndex is a 1-based index into the #GUID heap; zero means absent.
type GUIDIndex uint16

// BlobIndex is a byte offset into the #Blob heap; zero means absent.
type BlobIndex uint16

// UserStringIndex is a byte offset into the #US heap. Unlike the other
// heap indices it is never a table column — it only ever arrives as the
// 24-bit row field of an LdStr token — so it carries the token's width.
type UserStringIndex uint32

// RowIndex is a 1-based row reference into a single named table; zero
// means absent.
type RowIndex uint16

// Valid reports whether the index refers to an actual row.
func (r RowIndex) Valid() bool { return r != 0 }

// codedIndexKind describes one of ECMA-335's coded-index families: the
// number of tag bits and the ordered list of candidate tables the tag
// selects among. Grounded on saferwall-pe's dotnet_helper.go codedidx
// table, generalized to this pipeline's fixed 16-bit width.
type codedIndexKind struct {
	name    string
	tagBits uint8
	tables  []Tag // position i (0-based) is the table for tag i; unusedSlot marks a reserved position
}

// unusedSlot marks a reserved tag position in a coded-index candidate list
// that carries no table, per spec.md §4.D ("not used" marker).
var unusedSlot = Tag(0xFF)

var (
	codedTypeDefOrRef = codedIndexKind{"TypeDefOrRef", 2, []Tag{TagTypeDef, TagTypeRef, TagTypeSpec}}
	codedResolutionScope = codedIndexKind{"ResolutionScope", 2, []Tag{TagModule, TagModuleRef, TagAssemblyRef, TagTypeRef}}
	codedMemberRefParent = codedIndexKind{"MemberRefParent", 3, []Tag{TagTypeDef, TagTypeRef, TagModuleRef, TagMethodDef, TagTypeSpec}}
	codedHasConstant     = codedIndexKind{"HasConstant", 2, []Tag{TagField, TagParam, TagProperty}}
	codedHasCustomAttribute = codedIndexKind{"HasCustomAttribute", 5, []Tag{
		TagMethodDef, TagField, TagTypeRef, TagTypeDef, TagParam, TagInterfaceImpl, TagMemberRef,
		TagModule, TagDeclSecurity, TagProperty, TagEvent, TagStandAloneSig, TagModuleRef,
		TagTypeSpec, TagAssembly, TagAssemblyRef, TagFile, TagExportedType, TagManifestResource,
		TagGenericParam, TagGenericParamConstraint, TagMethodSpec,
	}}
	codedCustomAttributeType = codedIndexKind{"CustomAttributeType", 3, []Tag{unusedSlot, unusedSlot, TagMethodDef, TagMemberRef, unusedSlot}}
	codedHasFieldMarshal = codedIndexKind{"HasFieldMarshal", 1, []Tag{TagField, TagParam}}
	codedHasDeclSecurity = codedIndexKind{"HasDeclSecurity", 2, []Tag{TagTypeDef, TagMethodDef, TagAssembly}}
	codedHasSemantics    = codedIndexKind{"HasSemantics", 1, []Tag{TagEvent, TagProperty}}
	codedMethodDefOrRef  = codedIndexKind{"MethodDefOrRef", 1, []Tag{TagMethodDef, TagMemberRef}}
	codedMemberForwarded = codedIndexKind{"MemberForwarded", 1, []Tag{TagField, TagMethodDef}}
	codedImplementation  = codedIndexKind{"Implementation", 2, []Tag{TagFile, TagAssemblyRef, TagExportedType}}
	codedTypeOrMethodDef = codedIndexKind{"TypeOrMethodDef", 1, []Tag{TagTypeDef, TagMethodDef}}
)

// CodedIndex is a decoded coded index: which table the tag selected, and
// the 1-based row within it.
type CodedIndex struct {
	Kind  string
	Table Tag
	Row   RowIndex
}

// Valid reports whether the coded index refers to an actual row.
func (c CodedIndex) Valid() bool { return c.Row != 0 }

// decodeCodedIndex splits a raw fixed 16-bit value into (tag, row) per
// spec.md §4.D and resolves the tag to its candidate table.
func decodeCodedIndex(kind codedIndexKind, raw uint16) (CodedIndex, error) {
	mask := uint16(1)<<kind.tagBits - 1
	tag := raw & mask
	row := raw >> kind.tagBits
	if int(tag) >= len(kind.tables) {
		return CodedIndex{}, ErrBadInput
	}
	table := kind.tables[tag]
	if table == unusedSlot {
		return CodedIndex{}, ErrBadInput
	}
	return CodedIndex{Kind: kind.name, Table: table, Row: RowIndex(row)}, nil
}

// HasCustomAttribute's candidate list reserves no unused slot (it fills all
// 32 of its 5-bit tag space only partially; beyond the listed 22 entries a
// tag is simply out of range, caught by the bounds check above).
