package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health.
func (s *Server) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.pools != nil {
		body["workers"] = s.pools.Metrics()
	}
	c.JSON(http.StatusOK, body)
}

// HealthLive handles GET /health/live: the process is up.
func (s *Server) HealthLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthReady handles GET /health/ready. Readiness requires a working
// database round trip; the stats call doubles as that probe.
func (s *Server) HealthReady(c *gin.Context) {
	if _, err := s.stats.Stats(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStats handles GET /stats and returns the dashboard overview counters.
func (s *Server) GetStats(c *gin.Context) {
	stats, err := s.stats.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
