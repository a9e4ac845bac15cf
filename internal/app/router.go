package app

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"dirsync.io/dirsync/internal/api/handlers"
	"dirsync.io/dirsync/internal/api/middleware"
	"dirsync.io/dirsync/internal/config"
)

// Public routes that do NOT require JWT authentication. Callbacks are
// public by nature: the provider redirect arrives without a session.
var publicPrefixes = []string{
	"/api/v1/auth/login",
	"/api/v1/health",
}

func isPublic(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return strings.HasPrefix(path, "/api/v1/integrations/") && strings.HasSuffix(path, "/callback")
}

func newRouter(cfg *config.Config, server *handlers.Server, jwtCfg middleware.JWTConfig) *gin.Engine {
	router := gin.New()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{cfg.App.RootURL}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")

	router.Use(
		gin.Recovery(),
		cors.New(corsCfg),
		middleware.RequestID(),
		middleware.ErrorHandler(),
		middleware.MustOpenAPIValidator(),
		jwtSkipPublic(jwtCfg.SigningKey),
	)

	v1 := router.Group("/api/v1")
	v1.GET("/health", server.Health)
	v1.GET("/health/live", server.HealthLive)
	v1.GET("/health/ready", server.HealthReady)
	v1.POST("/auth/login", server.Login)
	v1.GET("/stats", server.GetStats)

	v1.GET("/employees", server.ListEmployees)
	v1.POST("/employees", server.CreateEmployee)
	v1.GET("/groups", server.ListGroups)
	v1.POST("/groups", server.CreateGroup)

	v1.GET("/integrations", server.ListIntegrations)
	v1.POST("/integrations/connect", server.ConnectIntegration)
	v1.POST("/integrations/csv/upload", server.UploadEmployeeCSV)
	v1.GET("/integrations/:id/callback", server.Callback)
	v1.DELETE("/integrations/:id", server.DeleteIntegration)
	v1.POST("/integrations/:id/sync", server.TriggerSync)
	v1.GET("/integrations/:id/sync-logs", server.ListSyncLogs)

	return router
}

// jwtSkipPublic applies JWT auth only on non-public routes.
func jwtSkipPublic(signingKey []byte) gin.HandlerFunc {
	jwtMw := middleware.JWTAuth(signingKey)
	return func(c *gin.Context) {
		if isPublic(c.Request.URL.Path) {
			c.Next()
			return
		}
		jwtMw(c)
	}
}
