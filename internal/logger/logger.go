package logger

import (
	"sync"
)

// Recognized log levels, matching the log.level config key.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	global *Logger
	once   sync.Once
)

// Get returns the process-wide logger. The level applies on the first call
// only; later callers share the already built instance.
func Get(level string) *Logger {
	once.Do(func() {
		global = newZapLogger(level)
	})
	return global
}

// Named returns a child logger tagged with a component name, so log lines
// from the scoring pipeline, HTTP layer and storage are distinguishable.
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}
