package seg

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrModelNotFound indicates the model file does not exist.
	ErrModelNotFound = errors.New("seg: model file not found")

	// ErrInvalidModel indicates the model file exists but is malformed or
	// its output does not match the configured class map.
	ErrInvalidModel = errors.New("seg: invalid model")

	// ErrClassesFailed indicates class metadata could not be loaded.
	ErrClassesFailed = errors.New("seg: class metadata failed to load")
)
