// Package logging provides the structured leveled logger used throughout the
// inference core. It is handed down explicitly by callers rather than
// reached for as a package-level global.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents different levels of logging
type LogLevel int

const (
	// LevelDebug is for detailed debugging information
	LevelDebug LogLevel = iota
	// LevelInfo is for general operational information
	LevelInfo
	// LevelWarn is for warning events that might need attention
	LevelWarn
	// LevelError is for error events that might still allow the application to continue running
	LevelError
	// LevelFatal is for severe error events that will lead the application to abort
	LevelFatal
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

// Logger provides structured logging capabilities
type Logger struct {
	name      string
	stdLogger *log.Logger
	minLevel  LogLevel
	mu        sync.Mutex
}

// New creates a new logger with the given name and minimum log level
func New(name string, minLevel LogLevel) *Logger {
	return &Logger{
		name:      name,
		stdLogger: log.New(os.Stdout, "", log.LstdFlags),
		minLevel:  minLevel,
	}
}

// WithName creates a new logger with a different name but the same configuration
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		name:      name,
		stdLogger: l.stdLogger,
		minLevel:  l.minLevel,
	}
}

// WithLevel creates a new logger with a different minimum log level
func (l *Logger) WithLevel(level LogLevel) *Logger {
	return &Logger{
		name:      l.name,
		stdLogger: l.stdLogger,
		minLevel:  level,
	}
}

// SetOutput sets the output destination for the logger
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stdLogger.SetOutput(w)
}

// SetMinLevel sets the minimum log level
func (l *Logger) SetMinLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// Debug logs a message at debug level
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log(LevelDebug, format, v...)
}

// Info logs a message at info level
func (l *Logger) Info(format string, v ...interface{}) {
	l.log(LevelInfo, format, v...)
}

// Warn logs a message at warning level
func (l *Logger) Warn(format string, v ...interface{}) {
	l.log(LevelWarn, format, v...)
}

// Error logs a message at error level
func (l *Logger) Error(format string, v ...interface{}) {
	l.log(LevelError, format, v...)
}

// Fatal logs a message at fatal level and then exits
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.log(LevelFatal, format, v...)
	os.Exit(1)
}

// kv renders an even-length key/value list as " key=value key2=value2".
// An odd-length list drops its trailing key rather than panicking, since
// logging a malformed call site shouldn't crash the process.
func kv(pairs ...interface{}) string {
	if len(pairs) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&b, " %v=%v", pairs[i], pairs[i+1])
	}
	return b.String()
}

// DebugKV logs a structured debug message: msg followed by alternating key/value pairs.
func (l *Logger) DebugKV(msg string, kvs ...interface{}) {
	l.log(LevelDebug, "%s%s", msg, kv(kvs...))
}

// InfoKV logs a structured info message.
func (l *Logger) InfoKV(msg string, kvs ...interface{}) {
	l.log(LevelInfo, "%s%s", msg, kv(kvs...))
}

// WarnKV logs a structured warning message.
func (l *Logger) WarnKV(msg string, kvs ...interface{}) {
	l.log(LevelWarn, "%s%s", msg, kv(kvs...))
}

// ErrorKV logs a structured error message.
func (l *Logger) ErrorKV(msg string, kvs ...interface{}) {
	l.log(LevelError, "%s%s", msg, kv(kvs...))
}

// Printf is a compatibility method for the standard logger interface
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Info(format, v...)
}

// Println is a compatibility method for the standard logger interface
func (l *Logger) Println(v ...interface{}) {
	l.Info("%s", fmt.Sprint(v...))
}

// log formats and writes a log message at the specified level
func (l *Logger) log(level LogLevel, format string, v ...interface{}) {
	if level < l.minLevel {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, v...)
	l.stdLogger.Printf("[%s] %s: %s", levelNames[level], l.name, msg)
}

// ParseLevel converts a string level to a LogLevel
func ParseLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// StdLogger returns a standard log.Logger instance that uses this logger
func (l *Logger) StdLogger() *log.Logger {
	return l.stdLogger
}
