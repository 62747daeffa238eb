package snapshot

import "errors"

// ErrCorrupt marks a stored value that could not be parsed back.
var ErrCorrupt = errors.New("corrupt mappack snapshot")
