package util

import (
	"io"
	"os"

	"github.com/fatih/color"
)

// IsTerminal reports whether w is a character device. Buffers and pipes
// are not.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// IsTTY returns true if stdout is a terminal.
func IsTTY() bool {
	return IsTerminal(os.Stdout)
}

// Interactive reports whether a command writing to w may take over the
// screen. Machine-readable output never does.
func Interactive(w io.Writer, noInteractive, jsonOut bool) bool {
	return !noInteractive && !jsonOut && IsTerminal(w)
}

// InitColor disables color for --no-color, a NO_COLOR environment, or
// output that is not a terminal.
func InitColor(w io.Writer, noColor bool) {
	if _, set := os.LookupEnv("NO_COLOR"); set || noColor || !IsTerminal(w) {
		color.NoColor = true
	}
}
