package clrmeta

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"

	"github.com/clrwasm/clrwasm/cuint"
)

// Heaps holds the four byte-string heaps a metadata root carries, sliced
// directly out of the image buffer by the stream directory walk.
type Heaps struct {
	Strings []byte // #Strings
	US      []byte // #US
	Blob    []byte // #Blob
	GUID    []byte // #GUID
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// RefString resolves a null-terminated UTF-8 string at byte offset i into
// #Strings. Index 0 means absent.
func (h *Heaps) RefString(i StringIndex) (string, error) {
	if i == 0 {
		return "", nil
	}
	off := int(i)
	if off >= len(h.Strings) {
		return "", ErrHeapDecodeError
	}
	end := bytes.IndexByte(h.Strings[off:], 0)
	if end < 0 {
		return "", ErrHeapDecodeError
	}
	return string(h.Strings[off : off+end]), nil
}

// RefUserString resolves the length-prefixed UTF-16LE string at byte
// offset i into #US. Index 0 means absent.
func (h *Heaps) RefUserString(i UserStringIndex) (string, error) {
	if i == 0 {
		return "", nil
	}
	if int(i) >= len(h.US) {
		return "", ErrHeapDecodeError
	}
	length, n, err := cuint.Decode(h.US[i:])
	if err != nil {
		return "", ErrHeapDecodeError
	}
	start := int(i) + n
	end := start + int(length)
	if end > len(h.US) {
		return "", ErrHeapDecodeError
	}
	// The final byte of a #US entry is a trailing marker byte (non-zero if
	// the string contains characters requiring special handling), not part
	// of the UTF-16 payload; the payload itself is length-1 bytes once a
	// trailing byte is present.
	payload := h.US[start:end]
	if len(payload)%2 == 1 {
		payload = payload[:len(payload)-1]
	}
	decoded, err := utf16le.NewDecoder().Bytes(payload)
	if err != nil {
		return "", ErrHeapDecodeError
	}
	return string(decoded), nil
}

// UserStringEntry is one decoded entry of the #US heap, in heap order.
type UserStringEntry struct {
	Index UserStringIndex
	Value string
}

// WalkUserStrings decodes every entry of the #US heap in ascending offset
// order, for the lowering engine's string-preload phase (spec.md §4.G).
// Offset 0 is the heap's reserved empty entry and is skipped.
func (h *Heaps) WalkUserStrings() ([]UserStringEntry, error) {
	if len(h.US) == 0 {
		return nil, nil
	}
	var entries []UserStringEntry
	cursor := uint32(1)
	for cursor < uint32(len(h.US)) {
		s, err := h.RefUserString(UserStringIndex(cursor))
		if err != nil {
			return nil, err
		}
		length, n, err := cuint.Decode(h.US[cursor:])
		if err != nil {
			return nil, ErrHeapDecodeError
		}
		entries = append(entries, UserStringEntry{Index: UserStringIndex(cursor), Value: s})
		cursor += uint32(n) + length
	}
	return entries, nil
}

// RefBlob resolves the length-prefixed byte slice at offset i into #Blob.
// Index 0 means absent.
func (h *Heaps) RefBlob(i BlobIndex) ([]byte, error) {
	if i == 0 {
		return nil, nil
	}
	off := int(i)
	if off >= len(h.Blob) {
		return nil, ErrHeapDecodeError
	}
	length, n, err := cuint.Decode(h.Blob[off:])
	if err != nil {
		return nil, ErrHeapDecodeError
	}
	start := off + n
	end := start + int(length)
	if end > len(h.Blob) {
		return nil, ErrHeapDecodeError
	}
	return h.Blob[start:end], nil
}

// RefGUID resolves the 16-byte slice at 1-based index i into #GUID.
// Index 0 means absent.
func (h *Heaps) RefGUID(i GUIDIndex) ([]byte, error) {
	if i == 0 {
		return nil, nil
	}
	off := (int(i) - 1) * 16
	if off+16 > len(h.GUID) {
		return nil, ErrHeapDecodeError
	}
	return h.GUID[off : off+16], nil
}
