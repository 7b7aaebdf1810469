package controller

import (
	"github.com/gin-gonic/gin"

	"pinas/metrics"
)

func SetupRoutes(r *gin.Engine, c *Controller) {
	connections := r.Group("/connections")
	{
		connections.POST("", c.Connect)
		connections.GET("", c.ListConnections)
		connections.GET("/:id", c.GetConnection)
		connections.DELETE("/:id", c.Disconnect)
		connections.GET("/:id/devices/:device/explorer", c.StartExplorer)
	}

	if c.cfg.Local.Enabled {
		r.GET("/local/explorer", c.StartLocalExplorer)
	}
	if c.cfg.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
}
