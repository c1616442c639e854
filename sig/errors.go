package sig

import "errors"

// ErrUnsupportedSignature is raised for any ElementType tag outside the
// required subset (spec.md §4.E).
var ErrUnsupportedSignature = errors.New("sig: unsupported signature element")

// ErrBadInput is a generic parser failure: truncated input or a tag that
// doesn't match the expected grammar position.
var ErrBadInput = errors.New("sig: truncated or malformed signature blob")
