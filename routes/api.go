package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/billing-resolver/app/controllers"
)

// SetupAPIRoutes wires the versioned API surface.
func SetupAPIRoutes(router *gin.Engine, resolveController *controllers.ResolveController) {
	v1 := router.Group("/v1")
	{
		billing := v1.Group("/billing")
		{
			billing.POST("/properties/resolve", resolveController.Resolve)
		}
		v1.GET("/health", resolveController.HealthCheck)
	}
}

// SetupHealthRoutes wires the bare liveness endpoints.
func SetupHealthRoutes(router *gin.Engine, resolveController *controllers.ResolveController) {
	router.GET("/health", resolveController.HealthCheck)
	router.GET("/ready", resolveController.HealthCheck)
	router.GET("/live", resolveController.HealthCheck)
}
