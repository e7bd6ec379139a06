package calculator

import "errors"

var (
	// ErrInsufficientData is returned when a metric needs more samples than were given.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidParameter is returned for out-of-range rates, negative amounts or zero bases.
	ErrInvalidParameter = errors.New("invalid parameter")
)
