package leaderboard

import (
	"errors"
	"fmt"

	"github.com/okian/trackrank/internal/domain/model"
)

// ErrInvariantViolation reports a time that is nobody's current best in its
// scope even after a rebuild. The cache and the store disagree beyond repair
// and the caller must not treat this as a missing value.
var ErrInvariantViolation = errors.New("rank invariant violated")

// InvariantError carries the scope and time that could not be ranked.
type InvariantError struct {
	Scope model.Scope
	Time  int32
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: time %d not found in %s after rebuild", ErrInvariantViolation, e.Time, e.Scope)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }
