package system

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReqLoggerKey is the context key used to store the request-scoped logger in
// gin context.
const ReqLoggerKey = "reqLogger"

// GetReqLogger returns the request-scoped sugared logger from gin.Context if
// present, otherwise returns the provided fallback.
func GetReqLogger(c *gin.Context, fallback *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return fallback
	}
	if v, ok := c.Get(ReqLoggerKey); ok {
		if l, ok2 := v.(*zap.SugaredLogger); ok2 {
			return l
		}
	}
	return fallback
}

// NewLogger builds the process-wide logger. Debug switches to the
// development encoder with debug level enabled.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
		return cfg.Build()
	}
	return zap.NewProduction()
}
