package finish

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidFinish marks a finish rejected before any write.
var ErrInvalidFinish = errors.New("invalid finish")

// ValidationError lists the fields of a rejected finish and why.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, e.Fields[name])
	}
	return fmt.Sprintf("%s: %s", ErrInvalidFinish, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidFinish }
