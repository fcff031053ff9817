package system

import (
	"go.uber.org/zap"
)

// NewTestLogger builds a sugared development logger for tests. Stacktraces
// are off so expected warn/error paths don't flood the test output.
func NewTestLogger() *zap.SugaredLogger {
	return NewTestZapLogger().Sugar()
}

// NewTestZapLogger is the un-sugared variant for code paths that take a
// *zap.Logger directly, such as the gin middleware.
func NewTestZapLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	logger, _ := cfg.Build()
	return logger
}
