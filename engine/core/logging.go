package core

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var (
	mu     sync.Mutex
	active *log.Logger
)

// ParseLogLevel maps a config string onto a level; anything unrecognized
// falls back to info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// NewLogger builds a logger in the renderer's house style. The result is
// not installed; pass it to SetLogger or keep it for a subsystem.
func NewLogger(level LogLevel, prefix string) *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
	})
	switch level {
	case DebugLevel:
		l.SetLevel(log.DebugLevel)
	case InfoLevel:
		l.SetLevel(log.InfoLevel)
	case WarnLevel:
		l.SetLevel(log.WarnLevel)
	case ErrorLevel:
		l.SetLevel(log.ErrorLevel)
	}
	return l
}

// SetLogger injects the logger used by the package-level helpers. Every
// component, including the Vulkan validation callback, reports through it.
func SetLogger(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	active = l
}

func getLogger() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if active == nil {
		active = NewLogger(InfoLevel, "Luminary ")
	}
	return active
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
