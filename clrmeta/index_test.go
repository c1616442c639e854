package clrmeta

import "testing"

func TestDecodeCodedIndexTypeDefOrRef(t *testing.T) {
	// tag=1 (TypeRef), row=5 -> raw = (5<<2)|1
	raw := uint16(5<<2 | 1)
	ci, err := decodeCodedIndex(codedTypeDefOrRef, raw)
	if err != nil {
		t.Fatalf("decodeCodedIndex: %v", err)
	}
	if ci.Table != TagTypeRef || ci.Row != 5 {
		t.Fatalf("ci = %+v, want {TypeRef 5}", ci)
	}
}

func TestDecodeCodedIndexUnusedSlot(t *testing.T) {
	// CustomAttributeType tag 0 is reserved unused.
	if _, err := decodeCodedIndex(codedCustomAttributeType, 0); err != ErrBadInput {
		t.Fatalf("err = %v, want ErrBadInput", err)
	}
}

func TestDecodeCodedIndexAbsent(t *testing.T) {
	ci, err := decodeCodedIndex(codedTypeDefOrRef, 0)
	if err != nil {
		t.Fatalf("decodeCodedIndex: %v", err)
	}
	if ci.Valid() {
		t.Fatal("ci.Valid() = true for raw 0, want false")
	}
}
