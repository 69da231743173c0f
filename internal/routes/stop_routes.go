package routes

import (
	"github.com/gin-gonic/gin"

	"transit_editor/internal/controllers"
	"transit_editor/internal/middleware"
)

// StopRoutes: reads are public, writes need an editor token.
func StopRoutes(r *gin.Engine) {
	stops := r.Group("/stops")
	{
		stops.GET("", controllers.ListStops)
		stops.GET("/search/name", controllers.SearchStops)
		stops.GET("/nearby", controllers.NearbyStops)
		stops.GET("/:id", controllers.GetStop)
	}

	write := r.Group("/stops", middleware.RequireAuth())
	{
		write.POST("", controllers.CreateStop)
		write.PUT("/:id", controllers.UpdateStop)
		write.DELETE("/:id", controllers.DeleteStop)
	}
}
