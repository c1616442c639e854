package pefile

import "errors"

// Sentinel errors, mirroring the Err* block in saferwall-pe's helper.go.
var (
	// ErrInvalidSize is returned when the file is smaller than the smallest
	// possible PE header.
	ErrInvalidSize = errors.New("not a PE file, smaller than the minimum header size")

	// ErrDOSMagicNotFound is returned when the DOS stub signature is absent.
	ErrDOSMagicNotFound = errors.New("DOS header magic not found")

	// ErrInvalidElfanew is returned when e_lfanew points outside the file.
	ErrInvalidElfanew = errors.New("invalid e_lfanew value, probably not a PE file")

	// ErrNTSignatureNotFound is returned when the PE00 signature is absent.
	ErrNTSignatureNotFound = errors.New("not a valid PE signature, magic not found")

	// ErrOptionalHeaderMagicNotFound is returned when the optional header
	// magic is neither PE32 nor PE32+.
	ErrOptionalHeaderMagicNotFound = errors.New("not a valid PE signature, optional header magic not found")

	// ErrOutsideBoundary is returned when a read would cross the end of the
	// image buffer.
	ErrOutsideBoundary = errors.New("reading data outside image boundary")

	// ErrNotManagedMachine names a COFF machine field that is not the
	// machine-agnostic managed-code value (0x14C). No function in this
	// package returns it: File parsing accepts any machine value, and
	// clrmeta.Decode reports a wrong machine as its own ErrMalformedImage.
	ErrNotManagedMachine = errors.New("machine type is not the managed-code variant (0x14C)")
)
