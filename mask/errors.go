package mask

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrShapeMismatch indicates tensor dimensions or indices are
	// incompatible with the requested operation.
	ErrShapeMismatch = errors.New("mask: shape mismatch")

	// ErrDegenerateInput indicates a tensor with a zero-length axis.
	ErrDegenerateInput = errors.New("mask: degenerate input")
)
