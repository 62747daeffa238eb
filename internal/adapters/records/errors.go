package records

import (
	"errors"
	"fmt"
)

// Sentinel kinds for records errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownDriver = errors.New("unknown store driver")
)

// NotFoundError names the entity that an existence lookup could not find.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}
