package di

import (
	"fmt"
	"log/slog"

	"github.com/DeafMist/news-reader/internal/config"
	"github.com/DeafMist/news-reader/internal/events"
	"github.com/DeafMist/news-reader/internal/guardian"
	"github.com/DeafMist/news-reader/internal/metrics"
	"github.com/DeafMist/news-reader/internal/netcheck"
	"github.com/DeafMist/news-reader/internal/opener"
	"github.com/DeafMist/news-reader/internal/presenter"
	"github.com/DeafMist/news-reader/internal/screen"
	"github.com/DeafMist/news-reader/internal/settings"
	"github.com/DeafMist/news-reader/internal/thumbnail"
)

// ThumbnailEndpoint is the API route rows point their thumbnails at.
const ThumbnailEndpoint = "/thumbnails"

// Source names the binary a Screen is built for.
type Source string

// SourceReader is the terminal reader. It renders no images, so its
// controller does not prefetch thumbnails.
const SourceReader Source = "reader"

// Screen bundles everything a binary needs to show the news list.
type Screen struct {
	Config     config.Common
	Log        *slog.Logger
	Settings   *settings.Store
	Client     *guardian.Client
	Thumbnails *thumbnail.Loader
	Metrics    *metrics.Metrics
	Controller *screen.Controller
}

// NewScreen bundles the wired components.
func NewScreen(
	cfg config.Common,
	log *slog.Logger,
	store *settings.Store,
	client *guardian.Client,
	thumbs *thumbnail.Loader,
	m *metrics.Metrics,
	controller *screen.Controller,
) *Screen {
	return &Screen{
		Config:     cfg,
		Log:        log,
		Settings:   store,
		Client:     client,
		Thumbnails: thumbs,
		Metrics:    m,
		Controller: controller,
	}
}

func provideSettings(cfg config.Common, log *slog.Logger) (*settings.Store, error) {
	return settings.Open(cfg.SettingsPath, log)
}

func provideClient(cfg config.Common, log *slog.Logger) *guardian.Client {
	return guardian.NewFromConfig(cfg, log)
}

func provideThumbnails(cfg config.Common, m *metrics.Metrics, log *slog.Logger) *thumbnail.Loader {
	cache := thumbnail.NewCache(cfg.ThumbnailCapacity, cfg.ThumbnailTTL)
	return thumbnail.NewLoader(cache, thumbnail.Options{
		MaxWidth:    cfg.ThumbnailMaxWidth,
		Concurrency: cfg.ThumbnailConcurrency,
		Timeout:     cfg.ReadTimeout + cfg.ConnectTimeout,
	}, log).WithRecorder(m)
}

func providePresenter(cfg config.Common) *presenter.Presenter {
	return presenter.New(presenter.Options{
		Locale:            cfg.Locale,
		Location:          cfg.Location(),
		ThumbnailEndpoint: ThumbnailEndpoint,
	})
}

func provideChecker(cfg config.Common) (netcheck.Checker, error) {
	d, err := netcheck.NewDialer(cfg.Endpoint, cfg.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("init reachability check: %w", err)
	}
	return d, nil
}

func providePublisher(cfg config.Common, log *slog.Logger) (events.Publisher, func()) {
	pub := events.New(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	return pub, func() {
		if err := pub.Close(); err != nil {
			log.Error("close event publisher", slog.Any("err", err))
		}
	}
}

func provideController(
	source Source,
	client *guardian.Client,
	store *settings.Store,
	p *presenter.Presenter,
	checker netcheck.Checker,
	thumbs *thumbnail.Loader,
	pub events.Publisher,
	m *metrics.Metrics,
	log *slog.Logger,
) (*screen.Controller, func()) {
	var prefetch screen.Thumbnails
	if source != SourceReader {
		prefetch = thumbs
	}
	c := screen.New(client, store, screen.Options{
		Source:     string(source),
		Presenter:  p,
		Checker:    checker,
		Opener:     opener.NewBrowser(),
		Thumbnails: prefetch,
		Publisher:  pub,
		Recorder:   m,
	}, log)
	c.Watch(store)
	return c, c.Close
}
