package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/DeafMist/news-reader/internal/config"
	"github.com/DeafMist/news-reader/internal/di"
	"github.com/DeafMist/news-reader/internal/logger"
	"github.com/DeafMist/news-reader/internal/screen"
)

var errScreenClosed = errors.New("screen closed")

type refresher interface {
	Refresh(ctx context.Context) string
	Wait(ctx context.Context) error
	View() screen.View
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	app, cleanup, err := di.InitializeScreen(cfg.Common, "worker", log)
	if err != nil {
		log.Error("init screen", slog.Any("err", err))
		os.Exit(1)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	scheduler, err := newScheduler(ctx, log, app.Controller, cfg.Schedule, cfg.RunTimeout)
	if err != nil {
		log.Error("schedule refresh", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("worker started",
		slog.String("schedule", cfg.Schedule),
		slog.String("term", app.Settings.SearchTerm()),
		slog.Bool("events", cfg.EventsEnabled()),
		slog.String("topic", cfg.KafkaTopic),
	)

	if _, err := runOnce(ctx, log, app.Controller, cfg.RunTimeout); err != nil {
		log.Error("initial refresh failed", slog.Any("err", err))
	}

	scheduler.Start()
	<-ctx.Done()
	log.Info("context canceled, stopping")

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
	}
}

// newScheduler registers one refresh per cron tick. Ticks that arrive while
// a refresh is still running are skipped.
func newScheduler(ctx context.Context, log *slog.Logger, scr refresher, schedule string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		if _, err := runOnce(ctx, log, scr, timeout); err != nil {
			log.Error("scheduled refresh failed", slog.Any("err", err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	return c, nil
}

func runOnce(ctx context.Context, log *slog.Logger, scr refresher, timeout time.Duration) (screen.View, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	id := scr.Refresh(ctx)
	if id == "" {
		return screen.View{}, errScreenClosed
	}
	if err := scr.Wait(ctx); err != nil {
		return screen.View{}, fmt.Errorf("wait for load %s: %w", id, err)
	}

	view := scr.View()
	log.Info("refresh finished",
		slog.String("load_id", id),
		slog.String("term", view.SearchTerm),
		slog.String("state", string(view.State)),
		slog.Int("records", len(view.Rows)),
	)
	if view.State == screen.StateError || view.State == screen.StateOffline {
		return view, fmt.Errorf("load %s: %s", id, view.Message)
	}
	return view, nil
}
