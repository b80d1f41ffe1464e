package mindgraph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soundprediction/mindgraph"
	"github.com/soundprediction/mindgraph/pkg/config"
	"github.com/soundprediction/mindgraph/pkg/server"
	"github.com/soundprediction/mindgraph/pkg/utils"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the MindGraph HTTP server",
	Long: `Start the MindGraph HTTP server to provide REST API access to concept graphs.

The server provides endpoints for:
- Building graphs from concepts or raw text
- Navigating nodes, neighbourhoods, paths and clusters
- Explaining relationships and answering questions
- Streaming graph lifecycle events
- Health checks`,
	RunE: runServer,
}

const shutdownTimeout = 30 * time.Second

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().String("host", "localhost", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
	serverCmd.Flags().String("mode", "debug", "Server mode (debug, release, test)")
	serverCmd.Flags().String("nlp-model", "", "Language model used for extraction")
	serverCmd.Flags().String("embedding-model", "", "Embedding model")

	_ = viper.BindPFlag("server.host", serverCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serverCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.mode", serverCmd.Flags().Lookup("mode"))
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	overrideConfigWithFlags(cmd, cfg)

	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLogger := newLogger(cfg, os.Stderr)
	defer closeLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := mindgraph.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize MindGraph: %w", err)
	}
	defer client.Close()

	srv := server.New(cfg, client, logger)
	srv.Setup()

	serverErrChan := make(chan error, 1)
	utils.SafeGo(func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}, func(err error) { serverErrChan <- err })

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("nlp-model") {
		m := cfg.NLP.Models["default"]
		m.Model, _ = cmd.Flags().GetString("nlp-model")
		cfg.NLP.Models["default"] = m
	}
	if cmd.Flags().Changed("embedding-model") {
		cfg.Embedding.Model, _ = cmd.Flags().GetString("embedding-model")
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Server.Host == "" {
		return fmt.Errorf("server host is required")
	}
	return nil
}
