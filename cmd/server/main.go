package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"transit_editor/internal/config"
	"transit_editor/internal/logger"
	"transit_editor/internal/middleware"
	"transit_editor/internal/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	if err := logger.Setup(cfg.LogFile, cfg.LogLevel); err != nil {
		logrus.WithError(err).Fatal("could not set up logging")
	}
	middleware.SetSecret(cfg.JWTSecret)

	if err := config.InitDB(); err != nil {
		logrus.WithError(err).Fatal("could not connect to the database")
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           routes.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.ServerAddr).Info("network API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("shutdown failed")
	}
	logrus.Info("network API stopped")
}
