// Package cmd contains the commands of the terminal news reader.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/DeafMist/news-reader/internal/config"
	"github.com/DeafMist/news-reader/internal/di"
	"github.com/DeafMist/news-reader/internal/logger"
	"github.com/DeafMist/news-reader/internal/opener"
	"github.com/DeafMist/news-reader/internal/screen"
)

var (
	verbose bool
	noColor bool
	cfg     *config.Reader
	log     *slog.Logger
	version = "dev"

	// browser opens article links; tests swap it out.
	browser opener.Opener = opener.NewBrowser()
)

var rootCmd = &cobra.Command{
	Use:   "reader",
	Short: "Read the latest Guardian headlines in the terminal",
	Long: `reader lists the newest articles matching the saved search term and
opens them in the default browser.

Example usage:
  reader list                          # Show the latest articles
  reader list --json                   # Same list as JSON
  reader open 3                        # Open the fourth article
  reader settings set-search-term uk   # Change the search term`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the root command. Cancelling ctx aborts a running load.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func initConfig(cmd *cobra.Command) error {
	if noColor {
		color.NoColor = true
	}

	var err error
	cfg, err = config.LoadReader()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if verbose {
		log = logger.NewWithLevel(cmd.ErrOrStderr(), "reader", slog.LevelDebug)
	} else {
		log = logger.NewWithWriter(cmd.ErrOrStderr(), "reader")
	}
	log.Debug("configuration loaded",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("settings", cfg.SettingsPath),
		slog.String("locale", cfg.Locale),
	)
	return nil
}

// loadScreen builds the screen, runs one load and waits for it.
func loadScreen(ctx context.Context) (*di.Screen, func(), error) {
	app, cleanup, err := di.InitializeScreen(cfg.Common, di.SourceReader, log)
	if err != nil {
		return nil, nil, err
	}
	app.Controller.UseOpener(browser)

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout+cfg.ReadTimeout)
	defer cancel()

	app.Controller.Refresh(ctx)
	if err := app.Controller.Wait(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("waiting for news: %w", err)
	}
	return app, cleanup, nil
}

// checkView turns failed loads into errors. An empty result is not a failure.
func checkView(view screen.View) error {
	switch view.State {
	case screen.StateError, screen.StateOffline:
		return fmt.Errorf("%s", view.Message)
	}
	return nil
}
