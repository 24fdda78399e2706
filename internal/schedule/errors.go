package schedule

import "errors"

var (
	// ErrInvalidDefinition indicates a malformed recurrence definition
	// (empty times of day, bad weekday mask, non-positive interval, missing
	// rule). Definitions failing this check are rejected before anything is
	// persisted.
	ErrInvalidDefinition = errors.New("invalid recurrence definition")

	// ErrInvalidTimeOfDay indicates an hour outside [0,23] or a minute
	// outside [0,59].
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
)
