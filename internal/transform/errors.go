package transform

import "errors"

var (
	// ErrUnknownMode indicates an invalid transform mode was specified.
	ErrUnknownMode = errors.New("unknown mode")

	// ErrUnknownTone indicates an invalid email tone was specified.
	ErrUnknownTone = errors.New("unknown tone")

	// ErrEmptyInput indicates there is nothing to send to the model.
	ErrEmptyInput = errors.New("input is empty")
)
