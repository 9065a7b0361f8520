// If you are AI: This file builds the gin routers for the API and health listeners.

package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"streamx/internal/svc/api"
	"streamx/internal/svc/health"
	"streamx/internal/svc/httpflv"
	"streamx/internal/svc/wsflv"
)

// enabledServices lists what /api/server reports.
var enabledServices = []string{"rtmp_ingest", "segmenter", "http_flv", "ws_flv", "hls", "relay"}

// newEngine returns a gin engine with recovery and zap request logging.
func newEngine(logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	return r
}

// requestLogger logs each request at debug level; server errors are logged as warnings.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client", c.ClientIP()),
		}
		if c.Writer.Status() >= 500 {
			logger.Warn("http request", fields...)
			return
		}
		logger.Debug("http request", fields...)
	}
}

// apiRouter serves the API, live FLV playback and HLS output.
func (s *Server) apiRouter(version string) *gin.Engine {
	log := s.logger.Named("http")
	r := newEngine(log)
	health.New(s.ready.Load).RegisterRoutes(r)
	api.NewService(api.Options{
		Registry: s.registry,
		Sessions: s.rtmp,
		Relays:   s.relays,
		Metrics:  s.metrics,
		Logger:   log,
		Version:  version,
		Services: enabledServices,
	}).RegisterRoutes(r)
	httpflv.NewHandler(s.registry, s.cfg.Ingest.PlayerBuffer, log).RegisterRoutes(r)
	wsflv.NewHandler(s.registry, s.cfg.Ingest.PlayerBuffer, log).RegisterRoutes(r)
	r.Static("/hls", s.cfg.Segmenter.StreamsDir)
	return r
}

// healthRouter serves only the health endpoints.
func (s *Server) healthRouter() *gin.Engine {
	r := newEngine(s.logger.Named("health"))
	health.New(s.ready.Load).RegisterRoutes(r)
	return r
}
