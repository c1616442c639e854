package clrmeta

import "testing"

// buildTableStream assembles a synthetic #~ stream with the given tags
// present (one row each, zero-valued), in ascending tag order, following
// the preamble-then-counts-then-rows layout spec.md §4.C describes.
func buildTableStream(t *testing.T, tags ...Tag) []byte {
	t.Helper()
	var valid uint64
	for _, tag := range tags {
		valid |= 1 << uint(tag)
	}

	buf := make([]byte, 24) // reserved(4) + major/minor/heapsize/unused(4) + valid(8) + sorted(8)
	putU64(buf[8:16], valid)

	for _, tag := range tagOrder {
		if valid&(1<<uint(tag)) == 0 {
			continue
		}
		buf = append(buf, 1, 0, 0, 0) // one row
	}
	for _, tag := range tagOrder {
		if valid&(1<<uint(tag)) == 0 {
			continue
		}
		schema := schemas[tag]
		for _, col := range schema {
			w := col.width()
			for i := uint32(0); i < w; i++ {
				buf = append(buf, 0)
			}
		}
	}
	return buf
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func TestDecodeTableStreamModuleOnly(t *testing.T) {
	data := buildTableStream(t, TagModule)
	tables, err := decodeTableStream(data)
	if err != nil {
		t.Fatalf("decodeTableStream: %v", err)
	}
	mod, ok := tables[TagModule]
	if !ok || len(mod.Rows) != 1 {
		t.Fatalf("Module table = %+v, want one row", mod)
	}
}

func TestDecodeTableStreamUnknownTableBit(t *testing.T) {
	data := buildTableStream(t, TagModule)
	// Set an unused tag bit (0x03, FieldPtr, has no schema entry).
	valid := leUint64(data[8:16]) | (1 << 0x03)
	putU64(data[8:16], valid)
	if _, err := decodeTableStream(data); err != ErrUnknownTable {
		t.Fatalf("err = %v, want ErrUnknownTable", err)
	}
}

func TestDecodeTableStreamRejectsNonZeroHeapSize(t *testing.T) {
	data := buildTableStream(t, TagModule)
	data[6] = 1
	if _, err := decodeTableStream(data); err != ErrBadInput {
		t.Fatalf("err = %v, want ErrBadInput", err)
	}
}

func TestResolveMethodListRangeLazy(t *testing.T) {
	img := &Image{Tables: map[Tag]*Table{
		TagTypeDef: {Tag: TagTypeDef, Rows: []*Row{
			rowWithMethodList(1),
			rowWithMethodList(3),
		}},
		TagMethodDef: {Tag: TagMethodDef, Rows: []*Row{
			{schema: schemas[TagMethodDef], values: make([]uint32, len(schemas[TagMethodDef]))},
			{schema: schemas[TagMethodDef], values: make([]uint32, len(schemas[TagMethodDef]))},
			{schema: schemas[TagMethodDef], values: make([]uint32, len(schemas[TagMethodDef]))},
		}},
	}}

	rows, err := img.ResolveMethodList(1)
	if err != nil {
		t.Fatalf("ResolveMethodList: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("first TypeDef owns %d methods, want 2", len(rows))
	}

	rows, err = img.ResolveMethodList(2)
	if err != nil {
		t.Fatalf("ResolveMethodList: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("last TypeDef owns %d methods, want 1", len(rows))
	}
}

func rowWithMethodList(start uint32) *Row {
	schema := schemas[TagTypeDef]
	r := &Row{schema: schema, values: make([]uint32, len(schema)), coded: map[string]CodedIndex{}}
	for i, c := range schema {
		if c.name == "MethodList" {
			r.values[i] = start
		}
	}
	return r
}
