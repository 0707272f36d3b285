package logger

import (
	"log"
	"sync"

	"github.com/fatih/color"

	"github.com/intentswap-hq/solver/pkg/models"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

var intentPrefixes = map[models.IntentType]string{
	models.IntentTypeSwap:       "[SWAP]  ",
	models.IntentTypeLimitOrder: "[LIMIT] ",
	models.IntentTypeTWAP:       "[TWAP]  ",
	models.IntentTypeDCA:        "[DCA]   ",
}

var colors = map[models.IntentType]color.Attribute{
	models.IntentTypeSwap:       color.FgHiGreen,
	models.IntentTypeLimitOrder: color.FgYellow,
	models.IntentTypeTWAP:       color.FgHiBlue,
	models.IntentTypeDCA:        color.FgMagenta,
}

// Logger is a simple interface for logging messages.
type Logger interface {
	// Info logs an informational message.
	Info(format string, args ...interface{})
	InfoWithIntent(intentType models.IntentType, format string, args ...interface{})

	// Error logs an error message.
	Error(format string, args ...interface{})
	ErrorWithIntent(intentType models.IntentType, format string, args ...interface{})

	// Debug logs a debug message.
	Debug(format string, args ...interface{})
	DebugWithIntent(intentType models.IntentType, format string, args ...interface{})

	// Notice logs a notice message.
	Notice(format string, args ...interface{})
	NoticeWithIntent(intentType models.IntentType, format string, args ...interface{})
}

// EmptyLogger is a simple implementation of the Logger interface that does nothing.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                                 {}
func (l *EmptyLogger) InfoWithIntent(_ models.IntentType, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                                {}
func (l *EmptyLogger) ErrorWithIntent(_ models.IntentType, _ string, _ ...interface{}) {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                                {}
func (l *EmptyLogger) DebugWithIntent(_ models.IntentType, _ string, _ ...interface{}) {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                               {}
func (l *EmptyLogger) NoticeWithIntent(_ models.IntentType, _ string, _ ...interface{}) {
}

// StdLogger is a standard implementation of the Logger interface that logs messages to the console.
type StdLogger struct {
	enableColoring bool
	level          Level
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
	}
}

// formatMessage formats the log message with the appropriate log level, intent prefix, and coloring if enabled.
func (l *StdLogger) formatMessage(level Level, intentType models.IntentType, format string) string {
	intentPrefix := intentPrefixes[intentType]
	if l.enableColoring && intentPrefix != "" {
		intentPrefix = color.New(colors[intentType]).Sprint(intentPrefix)
	}

	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "[DEBUG]  "
	case InfoLevel:
		levelStr = "[INFO]   "
	case NoticeLevel:
		levelStr = "[NOTICE] "
	case ErrorLevel:
		levelStr = "[ERROR]  "
	}

	return levelStr + intentPrefix + format
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= InfoLevel {
		log.Printf(l.formatMessage(InfoLevel, "", format), args...)
	}
}

func (l *StdLogger) InfoWithIntent(intentType models.IntentType, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= InfoLevel {
		log.Printf(l.formatMessage(InfoLevel, intentType, format), args...)
	}
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= ErrorLevel {
		log.Printf(l.formatMessage(ErrorLevel, "", format), args...)
	}
}

func (l *StdLogger) ErrorWithIntent(intentType models.IntentType, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= ErrorLevel {
		log.Printf(l.formatMessage(ErrorLevel, intentType, format), args...)
	}
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= DebugLevel {
		log.Printf(l.formatMessage(DebugLevel, "", format), args...)
	}
}

func (l *StdLogger) DebugWithIntent(intentType models.IntentType, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= DebugLevel {
		log.Printf(l.formatMessage(DebugLevel, intentType, format), args...)
	}
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= NoticeLevel {
		log.Printf(l.formatMessage(NoticeLevel, "", format), args...)
	}
}

func (l *StdLogger) NoticeWithIntent(intentType models.IntentType, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= NoticeLevel {
		log.Printf(l.formatMessage(NoticeLevel, intentType, format), args...)
	}
}
