package server

import (
	"net/http"
	"time"

	"github.com/danmuck/matrixd/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

// AdminRouter exposes health, readiness and prometheus metrics.
func (s *Server) AdminRouter() *gin.Engine {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.AdminMiddleware(s.cfg.Name, s.logger))
	if len(s.cfg.AdminCORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.AdminCORSOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.startedAt).String(),
			"service": s.cfg.Name,
			"version": version,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		if !s.ready.Load() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":          s.ready.Load(),
			"active_clients": s.active.Load(),
			"served_clients": s.served.Load(),
			"version":        version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
