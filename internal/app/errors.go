package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoStore          = errors.New("records store is required")
	ErrMappacksDisabled = errors.New("mappacks need the redis cache backend")
	ErrNotStarted       = errors.New("service not started")
)
