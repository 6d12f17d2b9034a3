// Copyright 2025 NVIDIA CORPORATION
// SPDX-License-Identifier: Apache-2.0

// Package log provides the leveled logger used throughout pkg/fairshare.
// Call sites use the InfraLogger.V(n).Infof/Warnf/Errorf convention so
// verbosity can be tuned per deployment without touching call sites.
package log

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// InfraLogger is the package-level logger used by every fairshare component.
var InfraLogger = newInfraLogger()

var verbosity int32

// SetVerbosity controls which V(n) calls actually emit. Higher n is more
// verbose. Safe to call concurrently with logging.
func SetVerbosity(v int) {
	atomic.StoreInt32(&verbosity, int32(v))
}

type infraLogger struct {
	sugar *zap.SugaredLogger
}

func newInfraLogger() *infraLogger {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger = zap.NewNop()
	}
	return &infraLogger{sugar: zapLogger.Sugar()}
}

// leveledLogger is returned by V(n); its methods are no-ops unless n is at
// or below the configured verbosity.
type leveledLogger struct {
	sugar   *zap.SugaredLogger
	enabled bool
}

// V returns a logger whose Info-level calls are only emitted when level is
// at or below the currently configured verbosity. Warn/Error always emit.
func (l *infraLogger) V(level int) *leveledLogger {
	return &leveledLogger{
		sugar:   l.sugar,
		enabled: int32(level) <= atomic.LoadInt32(&verbosity),
	}
}

func (l *leveledLogger) Info(args ...interface{}) {
	if l.enabled {
		l.sugar.Info(args...)
	}
}

func (l *leveledLogger) Infof(template string, args ...interface{}) {
	if l.enabled {
		l.sugar.Infof(template, args...)
	}
}

// Warnf always emits, regardless of verbosity: warnings are for conditions
// worth seeing in any deployment.
func (l *infraLogger) Warnf(template string, args ...interface{}) {
	l.sugar.Warnf(template, args...)
}

// Errorf always emits.
func (l *infraLogger) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}

func (l *leveledLogger) Warnf(template string, args ...interface{}) {
	l.sugar.Warnf(template, args...)
}

func (l *leveledLogger) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() error {
	return InfraLogger.sugar.Sync()
}
