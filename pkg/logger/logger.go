// Package logger wraps charmbracelet/log with project-wide defaults.
package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Logger is a thin wrapper around charmbracelet/log.Logger.
type Logger struct {
	*log.Logger
}

var (
	instance *Logger
	once     sync.Once
)

// Get returns the singleton logger, writing to stderr with timestamps.
func Get() *Logger {
	once.Do(func() {
		instance = &Logger{
			Logger: log.NewWithOptions(os.Stderr, log.Options{
				Level:           log.InfoLevel,
				ReportTimestamp: true,
				TimeFormat:      "15:04:05",
			}),
		}
	})
	return instance
}

// SetLevelString sets the level from a string; unknown values fall back
// to info.
func (l *Logger) SetLevelString(level string) {
	parsed := log.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		parsed = log.DebugLevel
	case "info":
		parsed = log.InfoLevel
	case "warn", "warning":
		parsed = log.WarnLevel
	case "error":
		parsed = log.ErrorLevel
	case "fatal":
		parsed = log.FatalLevel
	}
	l.Logger.SetLevel(parsed)
	log.SetLevel(parsed) // keep the package-global logger in sync
}

// ConfigureFromEnv applies DOCKHAND_LOG_LEVEL when set.
func (l *Logger) ConfigureFromEnv() {
	if level := os.Getenv("DOCKHAND_LOG_LEVEL"); level != "" {
		l.SetLevelString(level)
	}
}

func Debug(msg string, keyvals ...interface{}) { Get().Debug(msg, keyvals...) }
func Info(msg string, keyvals ...interface{})  { Get().Info(msg, keyvals...) }
func Warn(msg string, keyvals ...interface{})  { Get().Warn(msg, keyvals...) }
func Error(msg string, keyvals ...interface{}) { Get().Error(msg, keyvals...) }
func Fatal(msg string, keyvals ...interface{}) { Get().Fatal(msg, keyvals...) }
