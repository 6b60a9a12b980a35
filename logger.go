package refetch

import (
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
)

// Logger is the logging interface that the executor writes to. The apex/log
// Logger satisfies it, and NewLogger returns one that is already set up.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// NewLogger returns a Logger backed by apex/log that writes to stderr. The
// level string accepts the usual apex names ("debug", "warn", etc.); an
// unknown level falls back to "warn".
func NewLogger(level string) Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	return &log.Logger{Handler: text.New(os.Stderr), Level: lvl}
}

type noopLogger struct{}

// NewNoopLogger returns a Logger that discards everything. It is the
// default for executors that were created without the WithLogger option.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debugf(_ string, _ ...interface{}) {}
func (l *noopLogger) Warnf(_ string, _ ...interface{})  {}
