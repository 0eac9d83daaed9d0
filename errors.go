package rewind

import "errors"

var (
	// ErrUnknownCommand indicates a by-name execution found no registered
	// factory for the name.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnknownCommandType indicates deserialization met a payload kind
	// with no registered factory.
	ErrUnknownCommandType = errors.New("unknown command type")

	// ErrInvalidState indicates an imported state payload is malformed.
	ErrInvalidState = errors.New("invalid state")
)
