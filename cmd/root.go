// Package cmd defines the trend-aggregator command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/trend-aggregator/internal/app"
	"github.com/JakeFAU/trend-aggregator/internal/collector"
	"github.com/JakeFAU/trend-aggregator/internal/config"
	"github.com/JakeFAU/trend-aggregator/internal/credentials"
	"github.com/JakeFAU/trend-aggregator/internal/logging"
)

type appKeyType string

const appKey appKeyType = "app"

// App is what the root command needs from the service container. Tests swap
// in a fake through newApp.
type App interface {
	Run(ctx context.Context) (collector.Summary, error)
	Close()
}

var (
	loadConfig = config.Load
	newLogger  = logging.New
	bootstrap  = credentials.Bootstrap
	newApp     = func(ctx context.Context, cfg config.Config, logger *zap.Logger, platforms []string) (App, error) {
		return app.New(ctx, cfg, logger, platforms)
	}
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "trend-aggregator [platform...]",
		Short: "Collect trending items and store them enriched with NLP and Knowledge Graph data.",
		Long: `trend-aggregator fetches trending items from Reddit, Hacker News, YouTube and
Google Custom Search, scores them with the Cloud Natural Language API, looks
their titles up in the Knowledge Graph and inserts one row per item.

Platforms: reddit, hackernews, youtube, customsearch. With no arguments every
platform runs. Platforms always run in that order; unknown names are ignored.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := newLogger(logging.Config{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			if needsCredentials(cfg) {
				path, err := bootstrap(cfg.Credentials.Encoded, cfg.Credentials.Path)
				if err != nil {
					return fmt.Errorf("bootstrap credentials: %w", err)
				}
				logger.Debug("credentials written", zap.String("path", path))
			}

			selected, unknown := collector.Select(args)
			for _, token := range unknown {
				logger.Warn("ignoring unknown platform", zap.String("platform", token))
			}
			if len(selected) == 0 {
				logger.Warn("no known platforms selected; nothing to do")
			}

			appInstance, err := newApp(cmd.Context(), cfg, logger, selected)
			if err != nil {
				_ = logger.Sync()
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			// Closed here rather than in a post-run hook, which cobra skips on error.
			defer appInstance.Close()
			if _, err := appInstance.Run(cmd.Context()); err != nil {
				return fmt.Errorf("run collectors: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file")
	return cmd
}

// needsCredentials reports whether any Google client that relies on
// Application Default Credentials is configured.
func needsCredentials(cfg config.Config) bool {
	return cfg.NLP.Enabled ||
		cfg.Credentials.Encoded != "" ||
		cfg.Archive.GCSBucket != "" ||
		(cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicID != "")
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "trend-aggregator:", err)
		os.Exit(1)
	}
}
