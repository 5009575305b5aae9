package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel int

const (
	LogLevelError   LogLevel = 0
	LogLevelWarning LogLevel = 1
	LogLevelInfo    LogLevel = 2
	LogLevelDebug   LogLevel = 3
)

func (l LogLevel) zerolog() zerolog.Level {
	switch {
	case l <= LogLevelError:
		return zerolog.ErrorLevel
	case l == LogLevelWarning:
		return zerolog.WarnLevel
	case l == LogLevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// Logger is handed to every component at construction.  There is no package
// level logger.
type Logger struct {
	zl zerolog.Logger
}

// New returns a logger writing structured lines to w.
func New(w io.Writer, level LogLevel) *Logger {
	zl := zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// NewConsole returns a logger with human readable output, for interactive use.
func NewConsole(w io.Writer, level LogLevel) *Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return New(out, level)
}

// NewFileLogger appends to the file at path.  If verbose is set, lines also
// go to stdout.  The returned closer closes the log file.
func NewFileLogger(path string, level LogLevel, verbose bool) (*Logger, io.Closer, error) {
	logfile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = logfile
	if verbose {
		w = zerolog.MultiLevelWriter(logfile, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return New(w, level), logfile, nil
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger tagging each line with the component name.
func (l *Logger) With(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// Zerolog exposes the underlying logger for callers that want typed fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zl.Debug().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.zl.Info().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(format, args...))
}

// Fatalf logs and exits the process.  Only main packages should call this.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.zl.Fatal().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(args ...interface{}) {
	l.zl.Debug().Msg(fmt.Sprint(args...))
}

func (l *Logger) Info(args ...interface{}) {
	l.zl.Info().Msg(fmt.Sprint(args...))
}

func (l *Logger) Warn(args ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprint(args...))
}

func (l *Logger) Error(args ...interface{}) {
	l.zl.Error().Msg(fmt.Sprint(args...))
}
