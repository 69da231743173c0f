package routes

import (
	"github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	applog "transit_editor/internal/logger"
	"transit_editor/internal/middleware"
)

// SetupRouter builds the persistence API served by cmd/server.
func SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.SetLogger(logger.WithWriter(applog.Writer())))
	r.Use(middleware.CORS())

	AuthRoutes(r)
	StopRoutes(r)
	NetworkRoutes(r)

	return r
}
