package clrmeta

// colKind identifies how a table column's fixed-width bytes should be
// interpreted. Every index-shaped column is 2 bytes wide per the index
// decoder's stated subset (spec.md §4.D); plain constant columns keep
// their ECMA-335 byte width.
type colKind int

const (
	colU8 colKind = iota
	colU16
	colU32
	colStringIdx
	colGUIDIdx
	colBlobIdx
	colRowIdx
	colCodedIdx
)

// column describes one field of a table row.
type column struct {
	name  string
	kind  colKind
	coded codedIndexKind // only meaningful when kind == colCodedIdx
}

func (c column) width() uint32 {
	switch c.kind {
	case colU8:
		return 1
	case colU16, colStringIdx, colGUIDIdx, colBlobIdx, colRowIdx, colCodedIdx:
		return 2
	case colU32:
		return 4
	}
	return 0
}

// schemas maps each table tag to its ECMA-335 column layout, generalized to
// this pipeline's fixed-width index rule. Field order and meaning are
// grounded on saferwall-pe's dotnet_metadata_tables.go row structs.
var schemas = map[Tag][]column{
	TagModule: {
		{name: "Generation", kind: colU16},
		{name: "Name", kind: colStringIdx},
		{name: "Mvid", kind: colGUIDIdx},
		{name: "EncId", kind: colGUIDIdx},
		{name: "EncBaseId", kind: colGUIDIdx},
	},
	TagTypeRef: {
		{name: "ResolutionScope", kind: colCodedIdx, coded: codedResolutionScope},
		{name: "TypeName", kind: colStringIdx},
		{name: "TypeNamespace", kind: colStringIdx},
	},
	TagTypeDef: {
		{name: "Flags", kind: colU32},
		{name: "TypeName", kind: colStringIdx},
		{name: "TypeNamespace", kind: colStringIdx},
		{name: "Extends", kind: colCodedIdx, coded: codedTypeDefOrRef},
		{name: "FieldList", kind: colRowIdx},
		{name: "MethodList", kind: colRowIdx},
	},
	TagField: {
		{name: "Flags", kind: colU16},
		{name: "Name", kind: colStringIdx},
		{name: "Signature", kind: colBlobIdx},
	},
	TagMethodDef: {
		{name: "RVA", kind: colU32},
		{name: "ImplFlags", kind: colU16},
		{name: "Flags", kind: colU16},
		{name: "Name", kind: colStringIdx},
		{name: "Signature", kind: colBlobIdx},
		{name: "ParamList", kind: colRowIdx},
	},
	TagParam: {
		{name: "Flags", kind: colU16},
		{name: "Sequence", kind: colU16},
		{name: "Name", kind: colStringIdx},
	},
	TagInterfaceImpl: {
		{name: "Class", kind: colRowIdx},
		{name: "Interface", kind: colCodedIdx, coded: codedTypeDefOrRef},
	},
	TagMemberRef: {
		{name: "Class", kind: colCodedIdx, coded: codedMemberRefParent},
		{name: "Name", kind: colStringIdx},
		{name: "Signature", kind: colBlobIdx},
	},
	TagConstant: {
		{name: "Type", kind: colU8},
		{name: "Padding", kind: colU8},
		{name: "Parent", kind: colCodedIdx, coded: codedHasConstant},
		{name: "Value", kind: colBlobIdx},
	},
	TagCustomAttribute: {
		{name: "Parent", kind: colCodedIdx, coded: codedHasCustomAttribute},
		{name: "Type", kind: colCodedIdx, coded: codedCustomAttributeType},
		{name: "Value", kind: colBlobIdx},
	},
	TagFieldMarshal: {
		{name: "Parent", kind: colCodedIdx, coded: codedHasFieldMarshal},
		{name: "NativeType", kind: colBlobIdx},
	},
	TagDeclSecurity: {
		{name: "Action", kind: colU16},
		{name: "Parent", kind: colCodedIdx, coded: codedHasDeclSecurity},
		{name: "PermissionSet", kind: colBlobIdx},
	},
	TagClassLayout: {
		{name: "PackingSize", kind: colU16},
		{name: "ClassSize", kind: colU32},
		{name: "Parent", kind: colRowIdx},
	},
	TagFieldLayout: {
		{name: "Offset", kind: colU32},
		{name: "Field", kind: colRowIdx},
	},
	TagStandAloneSig: {
		{name: "Signature", kind: colBlobIdx},
	},
	TagEventMap: {
		{name: "Parent", kind: colRowIdx},
		{name: "EventList", kind: colRowIdx},
	},
	TagEvent: {
		{name: "EventFlags", kind: colU16},
		{name: "Name", kind: colStringIdx},
		{name: "EventType", kind: colCodedIdx, coded: codedTypeDefOrRef},
	},
	TagPropertyMap: {
		{name: "Parent", kind: colRowIdx},
		{name: "PropertyList", kind: colRowIdx},
	},
	TagProperty: {
		{name: "Flags", kind: colU16},
		{name: "Name", kind: colStringIdx},
		{name: "Type", kind: colBlobIdx},
	},
	TagMethodSemantics: {
		{name: "Semantics", kind: colU16},
		{name: "Method", kind: colRowIdx},
		{name: "Association", kind: colCodedIdx, coded: codedHasSemantics},
	},
	TagMethodImpl: {
		{name: "Class", kind: colRowIdx},
		{name: "MethodBody", kind: colCodedIdx, coded: codedMethodDefOrRef},
		{name: "MethodDeclaration", kind: colCodedIdx, coded: codedMethodDefOrRef},
	},
	TagModuleRef: {
		{name: "Name", kind: colStringIdx},
	},
	TagTypeSpec: {
		{name: "Signature", kind: colBlobIdx},
	},
	TagImplMap: {
		{name: "MappingFlags", kind: colU16},
		{name: "MemberForwarded", kind: colCodedIdx, coded: codedMemberForwarded},
		{name: "ImportName", kind: colStringIdx},
		{name: "ImportScope", kind: colRowIdx},
	},
	TagFieldRVA: {
		{name: "RVA", kind: colU32},
		{name: "Field", kind: colRowIdx},
	},
	TagAssembly: {
		{name: "HashAlgId", kind: colU32},
		{name: "MajorVersion", kind: colU16},
		{name: "MinorVersion", kind: colU16},
		{name: "BuildNumber", kind: colU16},
		{name: "RevisionNumber", kind: colU16},
		{name: "Flags", kind: colU32},
		{name: "PublicKey", kind: colBlobIdx},
		{name: "Name", kind: colStringIdx},
		{name: "Culture", kind: colStringIdx},
	},
	TagAssemblyProcessor: {
		{name: "Processor", kind: colU32},
	},
	TagAssemblyOS: {
		{name: "OSPlatformId", kind: colU32},
		{name: "OSMajorVersion", kind: colU32},
		{name: "OSMinorVersion", kind: colU32},
	},
	TagAssemblyRef: {
		{name: "MajorVersion", kind: colU16},
		{name: "MinorVersion", kind: colU16},
		{name: "BuildNumber", kind: colU16},
		{name: "RevisionNumber", kind: colU16},
		{name: "Flags", kind: colU32},
		{name: "PublicKeyOrToken", kind: colBlobIdx},
		{name: "Name", kind: colStringIdx},
		{name: "Culture", kind: colStringIdx},
		{name: "HashValue", kind: colBlobIdx},
	},
	TagAssemblyRefProcessor: {
		{name: "Processor", kind: colU32},
		{name: "AssemblyRef", kind: colRowIdx},
	},
	TagAssemblyRefOS: {
		{name: "OSPlatformId", kind: colU32},
		{name: "OSMajorVersion", kind: colU32},
		{name: "OSMinorVersion", kind: colU32},
		{name: "AssemblyRef", kind: colRowIdx},
	},
	TagFile: {
		{name: "Flags", kind: colU32},
		{name: "Name", kind: colStringIdx},
		{name: "HashValue", kind: colBlobIdx},
	},
	TagExportedType: {
		{name: "Flags", kind: colU32},
		{name: "TypeDefId", kind: colU32},
		{name: "TypeName", kind: colStringIdx},
		{name: "TypeNamespace", kind: colStringIdx},
		{name: "Implementation", kind: colCodedIdx, coded: codedImplementation},
	},
	TagManifestResource: {
		{name: "Offset", kind: colU32},
		{name: "Flags", kind: colU32},
		{name: "Name", kind: colStringIdx},
		{name: "Implementation", kind: colCodedIdx, coded: codedImplementation},
	},
	TagNestedClass: {
		{name: "NestedClass", kind: colRowIdx},
		{name: "EnclosingClass", kind: colRowIdx},
	},
	TagGenericParam: {
		{name: "Number", kind: colU16},
		{name: "Flags", kind: colU16},
		{name: "Owner", kind: colCodedIdx, coded: codedTypeOrMethodDef},
		{name: "Name", kind: colStringIdx},
	},
	TagMethodSpec: {
		{name: "Method", kind: colCodedIdx, coded: codedMethodDefOrRef},
		{name: "Instantiation", kind: colBlobIdx},
	},
	TagGenericParamConstraint: {
		{name: "Owner", kind: colRowIdx},
		{name: "Constraint", kind: colCodedIdx, coded: codedTypeDefOrRef},
	},
}

// Row is one decoded metadata table row: a name-addressable bag of
// columns, each either a plain constant or a resolved index.
type Row struct {
	schema []column
	values []uint32
	coded  map[string]CodedIndex
}

// Uint returns a plain constant column's value (U8/U16/U32).
func (r *Row) Uint(name string) uint32 { return r.values[r.colIndex(name)] }

// String returns a StringIndex column.
func (r *Row) String(name string) StringIndex { return StringIndex(r.values[r.colIndex(name)]) }

// GUID returns a GUIDIndex column.
func (r *Row) GUID(name string) GUIDIndex { return GUIDIndex(r.values[r.colIndex(name)]) }

// Blob returns a BlobIndex column.
func (r *Row) Blob(name string) BlobIndex { return BlobIndex(r.values[r.colIndex(name)]) }

// RowRef returns a single-table RowIndex column.
func (r *Row) RowRef(name string) RowIndex { return RowIndex(r.values[r.colIndex(name)]) }

// Coded returns a coded-index column, already resolved to its table.
func (r *Row) Coded(name string) CodedIndex { return r.coded[name] }

func (r *Row) colIndex(name string) int {
	for i, c := range r.schema {
		if c.name == name {
			return i
		}
	}
	panic("clrmeta: unknown column " + name)
}

// Table is every decoded row of one metadata table, 1-based (row 0 is the
// conventional "absent" sentinel, never stored).
type Table struct {
	Tag  Tag
	Rows []*Row
}

// Row returns the 1-based row, or nil and false for index 0 or an
// out-of-range index.
func (t *Table) Row(i RowIndex) (*Row, bool) {
	if i == 0 || int(i) > len(t.Rows) {
		return nil, false
	}
	return t.Rows[i-1], true
}

// ListTable returns every row of tag in storage order; slice element i is
// row i+1. An absent table yields no rows.
func (img *Image) ListTable(tag Tag) []*Row {
	t, ok := img.Tables[tag]
	if !ok {
		return nil
	}
	return t.Rows
}

// ResolveTable resolves a single-table row index to its row; index 0 or
// out-of-range is reported as absent, not an error (mirrors §4.C).
func (img *Image) ResolveTable(tag Tag, idx RowIndex) (*Row, bool) {
	t, ok := img.Tables[tag]
	if !ok {
		return nil, false
	}
	return t.Row(idx)
}

// decodeRow reads one row of schema starting at off, returning the
// decoded row and the number of bytes consumed.
func decodeRow(data []byte, off uint32, schema []column) (*Row, uint32, error) {
	row := &Row{schema: schema, values: make([]uint32, len(schema)), coded: map[string]CodedIndex{}}
	cursor := off
	for i, col := range schema {
		w := col.width()
		if uint64(cursor)+uint64(w) > uint64(len(data)) {
			return nil, 0, ErrBadInput
		}
		var v uint32
		switch w {
		case 1:
			v = uint32(data[cursor])
		case 2:
			v = uint32(data[cursor]) | uint32(data[cursor+1])<<8
		case 4:
			v = uint32(data[cursor]) | uint32(data[cursor+1])<<8 | uint32(data[cursor+2])<<16 | uint32(data[cursor+3])<<24
		}
		if col.kind == colCodedIdx {
			ci, err := decodeCodedIndex(col.coded, uint16(v))
			if err != nil {
				return nil, 0, err
			}
			row.coded[col.name] = ci
		}
		row.values[i] = v
		cursor += w
	}
	return row, cursor - off, nil
}

// decodeTableStream parses the #~ stream's preamble and rows per spec.md
// §4.C: ascending-tag-order row counts, then ascending-tag-order row
// bodies, with any leftover valid bit a fatal UnknownTable.
func decodeTableStream(data []byte) (map[Tag]*Table, error) {
	if len(data) < 24 {
		return nil, ErrBadInput
	}
	heapSize := data[6]
	if heapSize != 0 {
		return nil, ErrBadInput
	}
	valid := leUint64(data[8:16])
	cursor := uint32(24)

	counts := make(map[Tag]uint32, len(tagOrder))
	remaining := valid
	for _, tag := range tagOrder {
		bit := uint64(1) << uint(tag)
		if valid&bit != 0 {
			if uint64(cursor)+4 > uint64(len(data)) {
				return nil, ErrBadInput
			}
			counts[tag] = leUint32(data[cursor : cursor+4])
			cursor += 4
			remaining &^= bit
		}
	}
	if remaining != 0 {
		return nil, ErrUnknownTable
	}

	tables := make(map[Tag]*Table, len(counts))
	for _, tag := range tagOrder {
		n, ok := counts[tag]
		if !ok || n == 0 {
			continue
		}
		schema, known := schemas[tag]
		if !known {
			return nil, ErrUnknownTable
		}
		rows := make([]*Row, 0, n)
		for i := uint32(0); i < n; i++ {
			row, consumed, err := decodeRow(data, cursor, schema)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
			cursor += consumed
		}
		tables[tag] = &Table{Tag: tag, Rows: rows}
	}
	return tables, nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

// ResolveFieldList returns the contiguous run of Field rows owned by the
// TypeDef row at typeDef, computed lazily by peeking at the successor
// TypeDef row (spec.md §4.C range resolution).
func (img *Image) ResolveFieldList(typeDef RowIndex) ([]*Row, error) {
	return img.resolveOwnedRange(TagTypeDef, "FieldList", TagField, typeDef)
}

// ResolveMethodList returns the contiguous run of MethodDef rows owned by
// the TypeDef row at typeDef.
func (img *Image) ResolveMethodList(typeDef RowIndex) ([]*Row, error) {
	return img.resolveOwnedRange(TagTypeDef, "MethodList", TagMethodDef, typeDef)
}

// ResolveParamList returns the contiguous run of Param rows owned by the
// MethodDef row at methodDef.
func (img *Image) ResolveParamList(methodDef RowIndex) ([]*Row, error) {
	return img.resolveOwnedRange(TagMethodDef, "ParamList", TagParam, methodDef)
}

func (img *Image) resolveOwnedRange(parentTag Tag, startCol string, childTag Tag, parent RowIndex) ([]*Row, error) {
	parentTable, ok := img.Tables[parentTag]
	if !ok {
		return nil, nil
	}
	parentRow, ok := parentTable.Row(parent)
	if !ok {
		return nil, ErrBadIndex
	}
	start := parentRow.RowRef(startCol)

	childTable := img.Tables[childTag]
	childCount := uint32(0)
	if childTable != nil {
		childCount = uint32(len(childTable.Rows))
	}
	if start == 0 || uint32(start) > childCount {
		return nil, nil
	}

	end := RowIndex(childCount + 1)
	if int(parent) < len(parentTable.Rows) {
		if nextRow, ok := parentTable.Row(parent + 1); ok {
			if next := nextRow.RowRef(startCol); next != 0 {
				end = next
			}
		}
	}

	out := make([]*Row, 0, int(end)-int(start))
	for i := start; i < end; i++ {
		row, ok := childTable.Row(i)
		if !ok {
			break
		}
		out = append(out, row)
	}
	return out, nil
}
