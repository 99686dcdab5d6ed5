package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/billing-resolver/app/controllers"
)

// SetupAllRoutes assembles middleware and every route group.
func SetupAllRoutes(router *gin.Engine, resolveController *controllers.ResolveController) {
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	SetupWebRoutes(router)
	SetupHealthRoutes(router, resolveController)
	SetupAPIRoutes(router, resolveController)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"error":  "Route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}
