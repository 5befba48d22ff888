package tui

import "errors"

// ErrQuit is returned when the user leaves the selector without choosing.
var ErrQuit = errors.New("quit")
