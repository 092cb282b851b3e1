//go:build wireinject

package di

import (
	"log/slog"

	"github.com/google/wire"

	"github.com/DeafMist/news-reader/internal/config"
	"github.com/DeafMist/news-reader/internal/metrics"
)

// InitializeScreen wires the news screen for one binary.
func InitializeScreen(cfg config.Common, source Source, log *slog.Logger) (*Screen, func(), error) {
	wire.Build(
		provideSettings,
		provideClient,
		metrics.New,
		provideThumbnails,
		providePresenter,
		provideChecker,
		providePublisher,
		provideController,
		NewScreen,
	)
	return nil, nil, nil
}
