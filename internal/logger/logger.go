// Package logger provides the shared structured logger for pixelbridge.
package logger

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the global logger instance.
var Logger *log.Logger

func init() {
	Logger = log.New(os.Stderr)
	Logger.SetLevel(log.InfoLevel)
}

// Configure sets the log level.
// Precedence: the level argument > $PIXELBRIDGE_LOG_LEVEL > info.
func Configure(level string) {
	if level == "" {
		level = os.Getenv("PIXELBRIDGE_LOG_LEVEL")
	}
	Logger.SetLevel(parseLevel(level))
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "info", "":
		return log.InfoLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// Named returns a component logger sharing the global level.
func Named(prefix string) *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{Prefix: prefix})
	l.SetLevel(Logger.GetLevel())
	return l
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg any, keyvals ...any) { Logger.Debug(msg, keyvals...) }

// Info logs an info message with optional key-value pairs.
func Info(msg any, keyvals ...any) { Logger.Info(msg, keyvals...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg any, keyvals ...any) { Logger.Warn(msg, keyvals...) }

// Error logs an error message with optional key-value pairs.
func Error(msg any, keyvals ...any) { Logger.Error(msg, keyvals...) }
