package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/auth"
	"github.com/mrlokans/lingua/internal/ipc"
	"github.com/mrlokans/lingua/internal/metrics"
)

// RouterConfig carries the dependencies of the bridge router.
type RouterConfig struct {
	Registry       *ipc.Registry
	Hub            *Hub
	Checks         map[string]Check
	Metrics        *metrics.Metrics // nil disables /metrics
	Token          string
	AllowedOrigins []string
	Version        string
	Logger         *zap.Logger
}

// NewRouter creates and configures the bridge router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(requestLogger(cfg.Logger.Named("http")))
	router.Use(gin.Recovery())
	router.Use(auth.SecurityHeadersMiddleware())
	router.Use(auth.NewMiddleware(cfg.Token).Handler())

	health := NewHealthController(cfg.Checks, cfg.Version)
	ipcController := NewIPCController(cfg.Registry)
	wsController := NewWSController(cfg.Registry, cfg.Hub, cfg.AllowedOrigins, cfg.Logger)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// IPC bridge
	router.POST("/ipc/invoke/:channel", ipcController.Invoke)
	router.GET("/ipc/channels", ipcController.Channels)
	router.GET("/ipc/ws", wsController.Serve)

	return router
}

// requestLogger logs every request at debug level and failures above it.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Warn("request failed", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}
