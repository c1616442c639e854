package clrmeta

// Tag identifies one of the 38 fixed-schema metadata tables by its row in
// the on-disk tag space, following saferwall-pe's dotnet.go constant block
// but keyed to the sparse tag values the table stream actually uses (gaps
// at 0x03, 0x05, 0x07, 0x13, 0x16, 0x1E and 0x1F are reserved/unused tags
// and never appear in a valid bit vector).
type Tag uint8

// Table tags, in the order the table stream's row-count and row-body
// passes must walk them.
const (
	TagModule                 Tag = 0x00
	TagTypeRef                Tag = 0x01
	TagTypeDef                Tag = 0x02
	TagField                  Tag = 0x04
	TagMethodDef              Tag = 0x06
	TagParam                  Tag = 0x08
	TagInterfaceImpl          Tag = 0x09
	TagMemberRef              Tag = 0x0A
	TagConstant               Tag = 0x0B
	TagCustomAttribute        Tag = 0x0C
	TagFieldMarshal           Tag = 0x0D
	TagDeclSecurity           Tag = 0x0E
	TagClassLayout            Tag = 0x0F
	TagFieldLayout            Tag = 0x10
	TagStandAloneSig          Tag = 0x11
	TagEventMap               Tag = 0x12
	TagEvent                  Tag = 0x14
	TagPropertyMap            Tag = 0x15
	TagProperty               Tag = 0x17
	TagMethodSemantics        Tag = 0x18
	TagMethodImpl             Tag = 0x19
	TagModuleRef              Tag = 0x1A
	TagTypeSpec               Tag = 0x1B
	TagImplMap                Tag = 0x1C
	TagFieldRVA               Tag = 0x1D
	TagAssembly               Tag = 0x20
	TagAssemblyProcessor      Tag = 0x21
	TagAssemblyOS             Tag = 0x22
	TagAssemblyRef            Tag = 0x23
	TagAssemblyRefProcessor   Tag = 0x24
	TagAssemblyRefOS          Tag = 0x25
	TagFile                   Tag = 0x26
	TagExportedType           Tag = 0x27
	TagManifestResource       Tag = 0x28
	TagNestedClass            Tag = 0x29
	TagGenericParam           Tag = 0x2A
	TagMethodSpec             Tag = 0x2B
	TagGenericParamConstraint Tag = 0x2C
)

// tagOrder lists every known tag in strictly ascending order, the order the
// table stream's preamble and row bodies must be walked in.
var tagOrder = []Tag{
	TagModule, TagTypeRef, TagTypeDef, TagField, TagMethodDef, TagParam,
	TagInterfaceImpl, TagMemberRef, TagConstant, TagCustomAttribute,
	TagFieldMarshal, TagDeclSecurity, TagClassLayout, TagFieldLayout,
	TagStandAloneSig, TagEventMap, TagEvent, TagPropertyMap, TagProperty,
	TagMethodSemantics, TagMethodImpl, TagModuleRef, TagTypeSpec, TagImplMap,
	TagFieldRVA, TagAssembly, TagAssemblyProcessor, TagAssemblyOS,
	TagAssemblyRef, TagAssemblyRefProcessor, TagAssemblyRefOS, TagFile,
	TagExportedType, TagManifestResource, TagNestedClass, TagGenericParam,
	TagMethodSpec, TagGenericParamConstraint,
}

var tagNames = map[Tag]string{
	TagModule: "Module", TagTypeRef: "TypeRef", TagTypeDef: "TypeDef",
	TagField: "Field", TagMethodDef: "MethodDef", TagParam: "Param",
	TagInterfaceImpl: "InterfaceImpl", TagMemberRef: "MemberRef",
	TagConstant: "Constant", TagCustomAttribute: "CustomAttribute",
	TagFieldMarshal: "FieldMarshal", TagDeclSecurity: "DeclSecurity",
	TagClassLayout: "ClassLayout", TagFieldLayout: "FieldLayout",
	TagStandAloneSig: "StandAloneSig", TagEventMap: "EventMap",
	TagEvent: "Event", TagPropertyMap: "PropertyMap", TagProperty: "Property",
	TagMethodSemantics: "MethodSemantics", TagMethodImpl: "MethodImpl",
	TagModuleRef: "ModuleRef", TagTypeSpec: "TypeSpec", TagImplMap: "ImplMap",
	TagFieldRVA: "FieldRVA", TagAssembly: "Assembly",
	TagAssemblyProcessor: "AssemblyProcessor", TagAssemblyOS: "AssemblyOS",
	TagAssemblyRef: "AssemblyRef", TagAssemblyRefProcessor: "AssemblyRefProcessor",
	TagAssemblyRefOS: "AssemblyRefOS", TagFile: "File",
	TagExportedType: "ExportedType", TagManifestResource: "ManifestResource",
	TagNestedClass: "NestedClass", TagGenericParam: "GenericParam",
	TagMethodSpec: "MethodSpec", TagGenericParamConstraint: "GenericParamConstraint",
}

// String renders the table name, or empty for an unrecognised tag.
func (t Tag) String() string { return tagNames[t] }

// pseudoTagUserString is the token high byte that selects the #US heap
// rather than any row table (spec.md §6's pseudo-token tags).
const pseudoTagUserString = 0x70
