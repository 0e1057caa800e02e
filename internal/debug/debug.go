// Package debug provides env-gated diagnostic output.
// Enabled when DEVLOG_DEBUG is set to a non-empty value.
package debug

import (
	"fmt"
	"os"
)

var enabled = os.Getenv("DEVLOG_DEBUG") != ""

// Enabled reports whether debug output is active.
func Enabled() bool {
	return enabled
}

// Logf writes a formatted debug message to stderr when debugging is enabled.
func Logf(format string, args ...interface{}) {
	if !enabled {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
