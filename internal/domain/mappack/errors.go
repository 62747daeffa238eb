package mappack

import "errors"

// Sentinel kinds for mappack errors.
var (
	ErrUnknownMappack = errors.New("unknown mappack")
	ErrInvalidMappack = errors.New("invalid mappack")
)
