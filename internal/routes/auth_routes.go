package routes

import (
	"github.com/gin-gonic/gin"

	"transit_editor/internal/controllers"
)

func AuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/signup", controllers.SignupEditor)
		auth.POST("/login", controllers.LoginEditor)
	}
}
