package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupWebRoutes wires the informational root endpoints.
func SetupWebRoutes(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Billing Property Resolver",
			"version": "1.0.0",
			"docs":    "/docs",
		})
	})
	router.GET("/docs", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"api": "Billing Property Resolver API v1",
			"endpoints": map[string]string{
				"resolve": "POST /v1/billing/properties/resolve",
				"health":  "GET /v1/health",
			},
		})
	})
}
