package routes

import (
	"net/http"

	"github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"transit_editor/internal/controllers"
	applog "transit_editor/internal/logger"
	"transit_editor/internal/middleware"
)

// SetupEditorRouter builds the API the browser map widget talks to. A nil
// metrics handler leaves /metrics unmounted.
func SetupEditorRouter(ec *controllers.EditorController, metrics http.Handler, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.SetLogger(
		logger.WithWriter(applog.Writer()),
		logger.WithSkipPath([]string{"/metrics", "/layers/stops", "/layers/paths"}),
	))
	r.Use(middleware.CORS())
	r.Use(mw...)

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	r.GET("/state", ec.State)
	r.POST("/load", ec.Load)

	layers := r.Group("/layers")
	{
		layers.GET("/stops", ec.StopLayer)
		layers.GET("/paths", ec.PathLayer)
	}

	sessions := r.Group("/sessions")
	{
		sessions.POST("/stop", ec.OpenNewStop)
		sessions.POST("/stop/:pos", ec.OpenEditStop)
		sessions.POST("/route", ec.OpenNewRoute)
		sessions.POST("/route/:pos", ec.OpenEditRoute)
	}

	session := r.Group("/session")
	{
		session.PUT("/stop", ec.UpdateStopDraft)
		session.PUT("/route", ec.UpdateRouteDraft)
		session.DELETE("/route/stops/:pos", ec.RemoveStopFromRoute)
		session.POST("/save", ec.Save)
		session.POST("/cancel", ec.Cancel)
	}

	r.POST("/click", ec.Click)
	r.POST("/drag", ec.Drag)
	r.DELETE("/stops/:pos", ec.DeleteStop)
	r.DELETE("/routes/:pos", ec.DeleteRoute)

	search := r.Group("/search")
	{
		search.GET("/stops", ec.SearchStops)
		search.GET("/nearby", ec.NearbyStops)
	}
	return r
}
