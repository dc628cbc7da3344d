// Package logger provides a lightweight, centralized logging facility
// with configurable verbosity levels.
//
// The call-site API is printf style (Errorf, Warnf, Infof, Debugf, Tracef);
// records are emitted through a zap SugaredLogger writing to stderr.
//
// Verbosity levels (in increasing order):
//
//	Error < Info < Debug < Trace
//
// Warnings are emitted whenever Info is.
//
// Example usage:
//
//	logger.SetVerbosity(2) // Debug
//	logger.Infof("solving %d quotes", n)
//	logger.Debugf("spot=%f vol=%f", spot, vol)
package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents a logging verbosity level.
// Higher values mean more verbose logging.
type Level int

const (
	Error Level = iota // Error logs only critical failures.
	Info               // Info logs high-level application progress.
	Debug              // Debug logs detailed diagnostic information.
	Trace              // Trace logs very fine-grained execution details, such as solver iterations.
)

var (
	mu      sync.RWMutex
	current = Info
	sugar   *zap.SugaredLogger
)

func init() {
	sugar = build(os.Stderr)
}

// build creates the zap logger. Level filtering happens in logf, so the core
// accepts everything from Debug up.
func build(w io.Writer) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar()
}

// SetVerbosity sets the global logging verbosity.
// Typically called once during application startup
// (e.g. after parsing CLI flags).
func SetVerbosity(v int) {
	mu.Lock()
	defer mu.Unlock()
	current = Level(v)
}

// Verbosity returns the active verbosity level.
func Verbosity() Level {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	_ = sugar.Sync()
	sugar = build(w)
}

// Sync flushes buffered log entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.Sync()
}

// logf checks verbosity and hands the message to zap at the matching zap level.
func logf(l Level, zl zapcore.Level, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if current < l {
		return
	}
	sugar.Logf(zl, prefix+format, args...)
}

// Errorf logs an error-level message.
// Use this for failures that require attention.
func Errorf(format string, args ...any) {
	logf(Error, zapcore.ErrorLevel, "", format, args...)
}

// Warnf logs a warning, e.g. a solver that stopped at its iteration cap.
func Warnf(format string, args ...any) {
	logf(Info, zapcore.WarnLevel, "", format, args...)
}

// Infof logs an informational message.
// Use this for major lifecycle events.
func Infof(format string, args ...any) {
	logf(Info, zapcore.InfoLevel, "", format, args...)
}

// Debugf logs debugging information.
func Debugf(format string, args ...any) {
	logf(Debug, zapcore.DebugLevel, "", format, args...)
}

// Tracef logs very detailed execution traces.
// Use this sparingly due to high volume.
func Tracef(format string, args ...any) {
	logf(Trace, zapcore.DebugLevel, "[TRACE] ", format, args...)
}
