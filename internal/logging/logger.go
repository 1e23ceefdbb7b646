// Package logging provides leveled, colored logging for Mnemo.
// The CLI keeps it at WARN so command output stays clean; background
// pieces such as the reminder scheduler log at INFO.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

// Level represents log severity.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) color() string {
	switch l {
	case DEBUG:
		return "\033[36m" // Cyan
	case INFO:
		return "\033[32m" // Green
	case WARN:
		return "\033[33m" // Yellow
	case ERROR:
		return "\033[31m" // Red
	default:
		return "\033[0m"
	}
}

// Logger writes leveled lines with optional key=value fields.
type Logger struct {
	level  Level
	output io.Writer
	color  bool
	mu     sync.Mutex
	fields map[string]interface{}
}

var defaultLogger = &Logger{
	level:  INFO,
	output: os.Stderr,
	color:  true,
	fields: make(map[string]interface{}),
}

// SetLevel sets the global log level.
func SetLevel(level Level) {
	defaultLogger.level = level
}

// SetOutput sets the global output writer.
func SetOutput(w io.Writer) {
	defaultLogger.output = w
}

// SetColor toggles ANSI colors, off when stderr is not a terminal.
func SetColor(on bool) {
	defaultLogger.color = on
}

// WithField returns a logger carrying an extra field.
func WithField(key string, value interface{}) *Logger {
	return defaultLogger.WithField(key, value)
}

// WithField returns a copy of l carrying an extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	nl := &Logger{
		level:  l.level,
		output: l.output,
		color:  l.color,
		fields: make(map[string]interface{}, len(l.fields)+1),
	}
	for k, v := range l.fields {
		nl.fields[k] = v
	}
	nl.fields[key] = value
	return nl
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	formatted := msg
	if len(args) > 0 {
		formatted = fmt.Sprintf(msg, args...)
	}

	// Fields print in sorted order so log lines are stable.
	var fieldsStr string
	if len(l.fields) > 0 {
		keys := make([]string, 0, len(l.fields))
		for k := range l.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fieldsStr = " |"
		for _, k := range keys {
			fieldsStr += fmt.Sprintf(" %s=%v", k, l.fields[k])
		}
	}

	timestamp := time.Now().Format("15:04:05")
	if l.color {
		fmt.Fprintf(l.output, "%s %s[%s]\033[0m %s%s\n",
			timestamp, level.color(), level.String(), formatted, fieldsStr)
	} else {
		fmt.Fprintf(l.output, "%s [%s] %s%s\n",
			timestamp, level.String(), formatted, fieldsStr)
	}
}

// Debug logs a debug message.
func Debug(msg string, args ...interface{}) { defaultLogger.log(DEBUG, msg, args...) }

// Info logs an info message.
func Info(msg string, args ...interface{}) { defaultLogger.log(INFO, msg, args...) }

// Warn logs a warning message.
func Warn(msg string, args ...interface{}) { defaultLogger.log(WARN, msg, args...) }

// Error logs an error message.
func Error(msg string, args ...interface{}) { defaultLogger.log(ERROR, msg, args...) }

// Logger methods
func (l *Logger) Debug(msg string, args ...interface{}) { l.log(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log(WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log(ERROR, msg, args...) }
