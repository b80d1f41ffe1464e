package mindgraph

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soundprediction/mindgraph/pkg/config"
	mindgraphLogger "github.com/soundprediction/mindgraph/pkg/logger"
	"github.com/soundprediction/mindgraph/pkg/telemetry"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "mindgraph",
		Short: "MindGraph: concept graph builder",
		Long: `MindGraph turns concepts and relationships extracted from text into a
connected, clustered knowledge graph that can be navigated, searched and
questioned.

Configuration is read from $HOME/.mindgraph.yaml, ./.mindgraph.yaml or the file
given with --config. Environment variables override file values.`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mindgraph.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "color", "log format (color, text, json)")
	rootCmd.PersistentFlags().String("storage", "", "storage driver (none, file, badger, neo4j, ladybug)")
	rootCmd.PersistentFlags().String("storage-path", "", "storage directory for file, badger and ladybug")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("storage.driver", rootCmd.PersistentFlags().Lookup("storage"))
	_ = viper.BindPFlag("storage.path", rootCmd.PersistentFlags().Lookup("storage-path"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mindgraph")
	}

	viper.SetEnvPrefix("mindgraph")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the configuration after flags have been bound.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Errors are also recorded to parquet
// when a telemetry path is configured; the returned closer flushes them.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, func() error) {
	handler := mindgraphLogger.NewHandler(w, cfg.Log)
	noop := func() error { return nil }

	if cfg.Telemetry.ParquetPath == "" {
		return slog.New(handler), noop
	}
	if err := os.MkdirAll(cfg.Telemetry.ParquetPath, 0o755); err != nil {
		logger := slog.New(handler)
		logger.Warn("error tracking disabled", "path", cfg.Telemetry.ParquetPath, "error", err)
		return logger, noop
	}
	parquetHandler, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath)
	if err != nil {
		logger := slog.New(handler)
		logger.Warn("error tracking disabled", "error", err)
		return logger, noop
	}
	return slog.New(parquetHandler), parquetHandler.Close
}
