package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrNoRunner is returned when a trigger or guard is built without a runner
	ErrNoRunner = errors.New("scheduler: sync runner is required")
)
