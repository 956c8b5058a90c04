package logging

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	globalMu     sync.RWMutex
	globalLogger Logger
)

// SetGlobalLogger installs the process logger. Called by the logging
// component at start; tests may install their own.
func SetGlobalLogger(l Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

func global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	if l := global(); l != nil {
		l.Debug(ctx, msg, fields...)
	}
}

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	if l := global(); l != nil {
		l.Info(ctx, msg, fields...)
	}
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	if l := global(); l != nil {
		l.Warn(ctx, msg, fields...)
	}
}

func Error(ctx context.Context, msg string, fields ...zap.Field) {
	if l := global(); l != nil {
		l.Error(ctx, msg, fields...)
	}
}

func Debugf(ctx context.Context, format string, args ...interface{}) {
	Debug(ctx, fmt.Sprintf(format, args...))
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	Info(ctx, fmt.Sprintf(format, args...))
}

func Warnf(ctx context.Context, format string, args ...interface{}) {
	Warn(ctx, fmt.Sprintf(format, args...))
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	Error(ctx, fmt.Sprintf(format, args...))
}
