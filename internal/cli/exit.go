// Package cli contains the cobra commands of the agentco binary.
package cli

import "fmt"

// ExitError signals a non-zero exit code without printing an extra error
// message. Commands return it when a non-zero exit is a valid outcome
// (a FAIL verdict, an invalid waiver, a rejected pause) and they have
// already written their own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. main checks for this interface to tell a
// handled non-zero exit from an unexpected error.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// skipWire marks commands that run without loading services.
const skipWire = "agentco/skip-wire"

// NeedsServices reports whether a command requires the wired services.
func NeedsServices(annotations map[string]string) bool {
	return annotations[skipWire] == ""
}
