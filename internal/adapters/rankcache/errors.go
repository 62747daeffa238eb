package rankcache

import "errors"

// ErrMalformedMember is returned when a cached member is not a player id.
var ErrMalformedMember = errors.New("malformed rank cache member")
