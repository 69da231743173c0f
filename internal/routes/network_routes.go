package routes

import (
	"github.com/gin-gonic/gin"

	"transit_editor/internal/controllers"
	"transit_editor/internal/middleware"
)

// NetworkRoutes mounts the transit route endpoints.
func NetworkRoutes(r *gin.Engine) {
	routes := r.Group("/routes")
	{
		routes.GET("", controllers.ListRoutes)
		routes.GET("/:id", controllers.GetRoute)
	}

	write := r.Group("/routes", middleware.RequireAuth())
	{
		write.POST("", controllers.CreateRoute)
		write.PUT("/:id", controllers.UpdateRoute)
		write.DELETE("/:id", controllers.DeleteRoute)
	}
}
