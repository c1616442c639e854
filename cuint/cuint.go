// Package cuint decodes the compressed unsigned integer encoding used both
// by heap length prefixes (#US, #Blob) and by signature blobs (spec.md
// §4.E): 1, 2 or 4 bytes depending on the top bits of the first byte. The
// 4-byte form uses a 2-bit `11` tag over a 30-bit value (big-endian,
// masked with 0x3FFFFFFF), not ECMA-335's 3-bit/29-bit form.
package cuint

import "errors"

// ErrTruncated is returned when fewer bytes remain than the encoding's
// leading byte promises.
var ErrTruncated = errors.New("cuint: truncated compressed integer")

// Decode reads a compressed unsigned integer from the front of b, returning
// the value and the number of bytes consumed (1, 2 or 4).
func Decode(b []byte) (value uint32, n int, err error) {
	if len(b) == 0 {
		return 0, 0, ErrTruncated
	}
	first := b[0]
	switch {
	case first&0x80 == 0:
		return uint32(first), 1, nil
	case first&0xC0 == 0x80:
		if len(b) < 2 {
			return 0, 0, ErrTruncated
		}
		v := (uint32(first&0x3F) << 8) | uint32(b[1])
		return v, 2, nil
	case first&0xC0 == 0xC0:
		if len(b) < 4 {
			return 0, 0, ErrTruncated
		}
		v := (uint32(first&0x3F) << 24) | (uint32(b[1]) << 16) | (uint32(b[2]) << 8) | uint32(b[3])
		return v, 4, nil
	default:
		return 0, 0, ErrTruncated
	}
}

// Len returns the encoded byte length (1, 2, or 4) a value would occupy,
// mirroring spec.md §4.E's byte-length rule. Used by round-trip tests.
func Len(v uint32) int {
	switch {
	case v <= 0x7F:
		return 1
	case v <= 0x3FFF:
		return 2
	default:
		return 4
	}
}
