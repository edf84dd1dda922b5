// Package logging provides leveled logging over the standard log package,
// gated by the CLI's repeated -v flag. It never introduces a third-party
// logging framework: stdlib log, configured once at startup, is this
// codebase's ambient logging style throughout.
package logging

import "log"

// Level is a verbosity tier. Off is the default: only fatal/usage errors
// are printed. Each additional -v raises the tier by one.
type Level int

const (
	LevelOff Level = iota
	LevelInfo
	LevelProtocol
	LevelTrace
)

var current Level = LevelOff

// Init configures the standard logger's flags the way this codebase always
// has, and sets the active verbosity level from a -v count.
func Init(verbosity int) {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	switch {
	case verbosity <= 0:
		current = LevelOff
	case verbosity == 1:
		current = LevelInfo
	case verbosity == 2:
		current = LevelProtocol
	default:
		current = LevelTrace
	}
}

// Current returns the currently active verbosity tier.
func Current() Level { return current }

// Info logs at the first verbosity tier (image/session progress).
func Info(format string, args ...interface{}) {
	if current >= LevelInfo {
		log.Printf(format, args...)
	}
}

// Protocol logs at the second verbosity tier (opcode-level request/response).
func Protocol(format string, args ...interface{}) {
	if current >= LevelProtocol {
		log.Printf(format, args...)
	}
}

// Trace logs at the third verbosity tier (raw SLIP byte traces).
func Trace(format string, args ...interface{}) {
	if current >= LevelTrace {
		log.Printf(format, args...)
	}
}
