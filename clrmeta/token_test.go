package clrmeta

import "testing"

func TestDecodeTokenExamples(t *testing.T) {
	tests := []struct {
		raw    uint32
		table  Tag
		row    uint32
		experr error
	}{
		{0x06000001, TagMethodDef, 1, nil},
		{0x0A000002, TagMemberRef, 2, nil},
		{0x70000003, pseudoTagUserString, 3, nil},
		{0xFF000000, 0, 0, ErrBadToken},
	}
	for _, tt := range tests {
		tok, err := DecodeToken(tt.raw)
		if tt.experr != nil {
			if err != tt.experr {
				t.Fatalf("DecodeToken(%#x) err = %v, want %v", tt.raw, err, tt.experr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("DecodeToken(%#x): %v", tt.raw, err)
		}
		if tok.Table != tt.table || tok.Row != tt.row {
			t.Fatalf("DecodeToken(%#x) = {%v %d}, want {%v %d}", tt.raw, tok.Table, tok.Row, tt.table, tt.row)
		}
	}
}

func TestTokenCapabilityMethods(t *testing.T) {
	tok, err := DecodeToken(0x06000001)
	if err != nil {
		t.Fatalf("DecodeToken: %v", err)
	}
	if row, ok := tok.IsMethodDef(); !ok || row != 1 {
		t.Fatalf("IsMethodDef() = (%d, %v), want (1, true)", row, ok)
	}
	if _, ok := tok.IsMemberRef(); ok {
		t.Fatal("IsMemberRef() = true, want false")
	}

	us, err := DecodeToken(0x70000003)
	if err != nil {
		t.Fatalf("DecodeToken: %v", err)
	}
	off, ok := us.IsUserString()
	if !ok || off != 3 {
		t.Fatalf("IsUserString() = (%d, %v), want (3, true)", off, ok)
	}
}
