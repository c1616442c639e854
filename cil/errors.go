package cil

import "errors"

var (
	// ErrUnknownOpcode is the error kind for a byte with no ECMA-335
	// meaning. DecodeMethodBody does not return it; such bytes are
	// reported as ErrUnsupportedOpcode.
	ErrUnknownOpcode = errors.New("cil: unknown opcode")
	// ErrUnsupportedOpcode is raised for any opcode byte outside the
	// dispatch table: an ECMA-335 opcode this core doesn't decode, a byte
	// with no ECMA-335 meaning, or the 0xFE extended prefix.
	ErrUnsupportedOpcode = errors.New("cil: unsupported opcode")
	// ErrBadInput covers truncated bodies and unsupported header formats
	// (only the tiny format is decoded).
	ErrBadInput = errors.New("cil: truncated or malformed method body")
)
