package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents logging severity.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var (
	mu               sync.RWMutex
	currentLevel     = LevelWarn
	currentVerbosity = 0

	atomicLevel = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	sugar       = newSugar(zapcore.Lock(os.Stderr))
)

func newSugar(ws zapcore.WriteSyncer) *zap.SugaredLogger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), ws, atomicLevel)
	return zap.New(core).Sugar()
}

// SetCore replaces the sink. Tests use it with zaptest/observer.
func SetCore(core zapcore.Core) {
	mu.Lock()
	defer mu.Unlock()
	sugar = zap.New(core).Sugar()
}

// L returns the underlying structured logger.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Sync flushes buffered entries.
func Sync() {
	_ = L().Sync()
}

// SetVerbosity configures logger output from count of -v flags (0-4).
func SetVerbosity(count int) {
	if count < 0 {
		count = 0
	}
	if count > 4 {
		count = 4
	}
	mu.Lock()
	defer mu.Unlock()
	currentVerbosity = count
	switch count {
	case 0:
		currentLevel = LevelWarn
		atomicLevel.SetLevel(zapcore.WarnLevel)
	case 1:
		currentLevel = LevelInfo
		atomicLevel.SetLevel(zapcore.InfoLevel)
	case 2:
		currentLevel = LevelDebug
		atomicLevel.SetLevel(zapcore.DebugLevel)
	default:
		currentLevel = LevelTrace
		atomicLevel.SetLevel(zapcore.DebugLevel)
	}
}

// Verbosity returns the stored -v count.
func Verbosity() int {
	mu.RLock()
	defer mu.RUnlock()
	return currentVerbosity
}

// LevelName returns current level label.
func LevelName() string {
	mu.RLock()
	defer mu.RUnlock()
	return LevelToString(currentLevel)
}

// LevelToString converts a Level to human readable text.
func LevelToString(l Level) string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// ParseLevel returns Level + verbosity count from string.
func ParseLevel(s string) (Level, int, error) {
	switch strings.ToLower(s) {
	case "error":
		return LevelError, 0, nil
	case "warn", "warning":
		return LevelWarn, 0, nil
	case "info":
		return LevelInfo, 1, nil
	case "debug":
		return LevelDebug, 2, nil
	case "trace":
		return LevelTrace, 4, nil
	default:
		return LevelWarn, Verbosity(), fmt.Errorf("unknown level %s", s)
	}
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l <= currentLevel
}

// Errorf always prints.
func Errorf(format string, args ...any) {
	L().Errorf(format, args...)
}

func Warnf(format string, args ...any) {
	if shouldLog(LevelWarn) {
		L().Warnf(format, args...)
	}
}

func Infof(format string, args ...any) {
	if shouldLog(LevelInfo) {
		L().Infof(format, args...)
	}
}

func Debugf(format string, args ...any) {
	if shouldLog(LevelDebug) {
		L().Debugf(format, args...)
	}
}

// Tracef logs at zap's debug level, gated by -vvv.
func Tracef(format string, args ...any) {
	if shouldLog(LevelTrace) {
		L().Debugf("[TRC] "+format, args...)
	}
}
