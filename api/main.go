package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/news-reader/internal/config"
	"github.com/DeafMist/news-reader/internal/di"
	"github.com/DeafMist/news-reader/internal/logger"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	app, cleanup, err := di.InitializeScreen(cfg.Common, "api", log)
	if err != nil {
		log.Error("init screen", slog.Any("err", err))
		os.Exit(1)
	}
	defer cleanup()

	srv := &server{
		log:      log,
		screen:   app.Controller,
		thumbs:   app.Thumbnails,
		prefs:    app.Settings,
		upstream: app.Client,
		metrics:  app.Metrics.Handler(),
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app.Controller.Refresh(ctx)

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("settings", app.Settings.Path()),
			slog.Bool("events", cfg.EventsEnabled()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
