package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrSessionRequired is returned when RenderOptions carries no session to
	// edit.
	ErrSessionRequired = errors.New("tui: render options need a session")
	// ErrTooManyAttempts is returned when a field keeps failing validation or
	// confirmation.
	ErrTooManyAttempts = errors.New("tui: too many attempts")
)
