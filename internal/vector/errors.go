package vector

import "errors"

var (
	// ErrInvalidDimension is returned when a vector does not match the store's embedding dimension.
	ErrInvalidDimension = errors.New("invalid vector dimension")
	// ErrNotFound is returned by Load when no snapshot exists locally or remotely.
	ErrNotFound = errors.New("snapshot not found")
	// ErrUnknownIndexType is returned for an unsupported index type tag.
	ErrUnknownIndexType = errors.New("unknown index type")
	// ErrIndexUnavailable is returned when an index type is known but not compiled in.
	ErrIndexUnavailable = errors.New("index type not available in this build")
	// ErrCorruptSnapshot is returned when snapshot artifacts are unreadable or inconsistent.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)
