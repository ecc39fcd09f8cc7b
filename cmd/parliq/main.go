package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/config"
	"github.com/KMMOrganisation/ParliQ/internal/core"
	"github.com/KMMOrganisation/ParliQ/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "parliq",
	Short: "ParliQ turns UK parliamentary videos into a searchable knowledge graph",
	Long: `ParliQ ingests YouTube videos of UK parliamentary proceedings, extracts
political entities from their transcripts and answers questions about them.

Environment variables override config file values, for example:
  LLM_PROVIDER, LLM_API_KEY   language model used for chat and extraction
  YOUTUBE_API_KEY             YouTube Data API key (metadata, channels)
  STORAGE_DRIVER, DATABASE_URL
  REDIS_ADDR                  optional transcript cache
  CONFIG_PATH                 config file location`,
	SilenceUsage: true,
}

func init() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = config.DefaultPath
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, ingestCmd, ingestChannelCmd, exportCmd, statusCmd, searchCmd)
}

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and opens every configured capability.
// The caller owns the returned ParliQ and must Close it.
func bootstrap(ctx context.Context) (*core.ParliQ, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}

	app, err := core.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return app, logger, nil
}
