package clrmeta

import "errors"

// Sentinel errors, one per error kind this pipeline ever raises for the
// metadata-decoding components. Every failure here is fatal to the compile
// call; nothing here is retried or recovered from.
var (
	ErrMalformedImage = errors.New("clrmeta: malformed image")
	ErrMissingStream  = errors.New("clrmeta: missing #~ stream")
	ErrUnknownTable   = errors.New("clrmeta: unknown table bit set in valid mask")
	ErrBadToken       = errors.New("clrmeta: metadata token with unknown high byte")
	ErrHeapDecodeError = errors.New("clrmeta: heap index out of range or malformed length prefix")
	ErrBadIndex       = errors.New("clrmeta: table row reference out of range")
	ErrBadInput       = errors.New("clrmeta: truncated or malformed table stream")
)
