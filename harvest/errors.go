package harvest

import "errors"

// ErrInvalidConfig is returned when the run configuration fails validation.
var ErrInvalidConfig = errors.New("harvest: invalid config")

// ErrUnreachable is returned when the startup probe cannot reach the register.
var ErrUnreachable = errors.New("harvest: register unreachable")

// ErrEmptyPlan is returned when resume and skip filtering leave nothing to do.
// Callers may treat it as success; it exists so they can tell the difference.
var ErrEmptyPlan = errors.New("harvest: nothing to harvest")
