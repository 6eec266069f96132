package model

import "errors"

var (
	// ErrUnknownMeasure is returned when a dataset is mapped to an output
	// field that OutputRow does not have.
	ErrUnknownMeasure = errors.New("unknown output measure")

	// ErrInvalidWindow is returned when a window ends before it starts.
	ErrInvalidWindow = errors.New("invalid window: end is before start")
)
