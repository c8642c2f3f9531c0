package log

import (
	"io"
	"log"
	"os"
)

type Level int

const (
	LevelInfo Level = iota
	LevelDebug
)

// Logger writes operator-facing status lines. Info and debug lines go to
// out, error lines to errOut.
type Logger struct {
	level Level
	info  *log.Logger
	debug *log.Logger
	err   *log.Logger
}

func New(level Level, out, errOut io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Logger{
		level: level,
		info:  log.New(out, "INFO: ", log.LstdFlags),
		debug: log.New(out, "DEBUG: ", log.LstdFlags),
		err:   log.New(errOut, "ERROR: ", log.LstdFlags),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(LevelInfo, io.Discard, io.Discard)
}

func (l *Logger) Infof(format string, args ...any) {
	l.info.Printf(format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.level >= LevelDebug {
		l.debug.Printf(format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...any) {
	l.err.Printf(format, args...)
}

func (l *Logger) Level() Level {
	return l.level
}
