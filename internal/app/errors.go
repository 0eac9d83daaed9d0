package app

import "errors"

// Application errors.
var (
	// ErrQuit signals that the shell should exit normally.
	ErrQuit = errors.New("quit requested")

	// ErrNoStore indicates no state store is configured.
	ErrNoStore = errors.New("no state store configured")

	// ErrUnknownScript indicates a script name with no loaded source.
	ErrUnknownScript = errors.New("unknown script")

	// ErrOutOfRange indicates an edit offset outside the document.
	ErrOutOfRange = errors.New("offset out of range")

	// ErrDiverged indicates the document no longer matches what a
	// command recorded when it executed.
	ErrDiverged = errors.New("document diverged")

	// ErrNotInDocument indicates replace text that was not found.
	ErrNotInDocument = errors.New("text not found in document")
)
