// Package logger provides component-scoped logging for hookclaw.
//
// Call sites tag every line with a short component name ("dispatcher",
// "delivery", "ledger") so gateway logs can be filtered per concern.
package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors zap's levels with the subset hookclaw uses.
type Level = zapcore.Level

const (
	DEBUG = zapcore.DebugLevel
	INFO  = zapcore.InfoLevel
	WARN  = zapcore.WarnLevel
	ERROR = zapcore.ErrorLevel
)

var (
	atomicLevel = zap.NewAtomicLevelAt(INFO)
	base        atomic.Pointer[zap.Logger]
)

func init() {
	base.Store(build())
}

func build() *zap.Logger {
	cfg := zap.Config{
		Encoding:         "json",
		Level:            atomicLevel,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    zap.NewProductionEncoderConfig(),
	}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return l
}

// SetLevel changes the global log level at runtime.
func SetLevel(level Level) {
	atomicLevel.SetLevel(level)
}

// SetLogger replaces the backing zap logger. Intended for tests.
func SetLogger(l *zap.Logger) {
	base.Store(l)
}

func fields(component string, kv map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(kv)+1)
	out = append(out, zap.String("component", component))
	for k, v := range kv {
		out = append(out, zap.Any(k, v))
	}
	return out
}

// InfoC logs an info message for a component.
func InfoC(component, msg string) {
	base.Load().Info(msg, zap.String("component", component))
}

// InfoCF logs an info message for a component with structured fields.
func InfoCF(component, msg string, kv map[string]any) {
	base.Load().Info(msg, fields(component, kv)...)
}

// DebugCF logs a debug message for a component with structured fields.
func DebugCF(component, msg string, kv map[string]any) {
	base.Load().Debug(msg, fields(component, kv)...)
}

// WarnCF logs a warning for a component with structured fields.
func WarnCF(component, msg string, kv map[string]any) {
	base.Load().Warn(msg, fields(component, kv)...)
}

// ErrorCF logs an error for a component with structured fields.
func ErrorCF(component, msg string, kv map[string]any) {
	base.Load().Error(msg, fields(component, kv)...)
}

// Truncate shortens s for log output so message bodies and secrets never
// land in logs whole.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
