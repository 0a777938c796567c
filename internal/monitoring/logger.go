// Package monitoring holds the diagnostic logger shared by lapfinder packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf.
// Tests and the TUI redirect or mute it with SetLogger.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

// Prefixed returns a logger that tags each line with a component name
// and forwards to whatever Logf is current at call time.
func Prefixed(component string) func(format string, v ...any) {
	return func(format string, v ...any) {
		Logf("["+component+"] "+format, v...)
	}
}
