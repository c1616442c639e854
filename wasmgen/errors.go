package wasmgen

import "errors"

var (
	// ErrUnsupportedMemberRefParent is raised for a MemberRef whose parent
	// coded index resolves to anything other than TypeRef.
	ErrUnsupportedMemberRefParent = errors.New("wasmgen: unsupported MemberRef parent")
	// ErrUnsupportedGenericCall is raised when a Call instruction targets a
	// MethodSpec token (generic method instantiation).
	ErrUnsupportedGenericCall = errors.New("wasmgen: unsupported generic call")
	// ErrMalformedCallTarget is raised when a Call instruction's token
	// resolves to neither MethodDef, MemberRef nor MethodSpec.
	ErrMalformedCallTarget = errors.New("wasmgen: malformed call target")
	// ErrUnsupportedOpcode is raised during body lowering for a decoded
	// instruction outside the one-for-one lowering table.
	ErrUnsupportedOpcode = errors.New("wasmgen: unsupported opcode during lowering")
	// ErrUnsupportedSignature is raised when a signature's return type is
	// non-void (only void returns are currently lowered) or otherwise
	// outside the fixed lowering table.
	ErrUnsupportedSignature = errors.New("wasmgen: unsupported signature shape")
	ErrBadInput             = errors.New("wasmgen: malformed input")
)
