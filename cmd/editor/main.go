package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"transit_editor/internal/config"
	"transit_editor/internal/controllers"
	"transit_editor/internal/directions"
	"transit_editor/internal/editor"
	"transit_editor/internal/gtfsapi"
	"transit_editor/internal/logger"
	"transit_editor/internal/metrics"
	"transit_editor/internal/routes"
	"transit_editor/internal/surface"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	if err := logger.Setup(cfg.LogFile, cfg.LogLevel); err != nil {
		logrus.WithError(err).Fatal("could not set up logging")
	}

	backend := gtfsapi.New(cfg.BackendURL, cfg.RequestTimeout)
	if cfg.EditorEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		err := backend.Login(ctx, cfg.EditorEmail, cfg.EditorPassword)
		cancel()
		if err != nil {
			logrus.WithError(err).Fatal("could not log in to the network API")
		}
	}

	var dirs editor.Directions
	if cfg.MapboxToken != "" {
		dirs = directions.NewMapbox(cfg.MapboxBaseURL, cfg.MapboxToken, cfg.RequestTimeout)
	} else {
		logrus.Warn("MAPBOX_TOKEN not set, route paths will not be computed")
	}

	layers := surface.NewLayers()

	var (
		collector *metrics.Collector
		em        editor.Metrics
		metricsH  http.Handler
		mw        []gin.HandlerFunc
	)
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector()
		em = collector
		metricsH = collector.Handler()
		mw = append(mw, collector.Middleware())
	}

	e := editor.New(backend, dirs, layers, em)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	if err := e.Load(ctx); err != nil {
		logrus.WithError(err).Warn("initial load failed, the network can be reloaded from the editor")
	}
	cancel()

	ec := controllers.NewEditorController(e, layers, backend)
	ec.DefaultColor = cfg.DefaultRouteColor

	srv := &http.Server{
		Addr:              cfg.EditorAddr,
		Handler:           routes.SetupEditorRouter(ec, metricsH, mw...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.EditorAddr).Info("editor listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdown); err != nil {
		logrus.WithError(err).Error("shutdown failed")
	}
	e.Close()
	logrus.Info("editor stopped")
}
