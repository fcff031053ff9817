package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MY-Final/napcat-plugin-email/pkg/config"
	"github.com/MY-Final/napcat-plugin-email/pkg/metrics"
	"github.com/MY-Final/napcat-plugin-email/pkg/system"
)

// APIController is one mounted route group.
type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

// Server is the thin HTTP surface over the plugin core. The chat-bot host
// talks to it; it holds no business logic of its own.
type Server struct {
	gin    *gin.Engine
	config config.Config
}

// NewServer builds the gin engine with request logging, panic recovery and
// the operational endpoints (/healthz, /metrics).
func NewServer(log *zap.Logger, cfg config.Config, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		requestLogger(log),
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
	)

	if len(cfg.Server.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.Server.TrustedProxies)
	}

	if debug {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins: []string{"http://localhost:5173", "127.0.0.1:8080"},
				AllowMethods: []string{"GET", "PUT", "PATCH", "POST", "DELETE", "OPTIONS"},
				AllowHeaders: []string{"Origin", "Authorization", "Content-Type"},
				MaxAge:       12 * time.Hour,
			}),
		)
	}

	s := &Server{
		gin:    engine,
		config: cfg,
	}

	engine.GET("/healthz", s.healthz)
	engine.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	return s
}

// RegisterAll mounts the given controllers under /api.
func (s *Server) RegisterAll(controllers []APIController) error {
	r := s.gin.Group("api")
	for _, c := range controllers {
		if err := c.Register(r.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return err
		}
	}
	return nil
}

// Handler exposes the engine for an http.Server (and for tests).
func (s *Server) Handler() http.Handler {
	return s.gin
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLogger stores a request-scoped child logger carrying a request id
// in the gin context. Handlers fetch it via system.GetReqLogger so their log
// lines correlate with the access log.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	sugar := log.Sugar()
	return func(c *gin.Context) {
		c.Set(system.ReqLoggerKey, sugar.With("requestId", uuid.NewString()))
		c.Next()
	}
}
