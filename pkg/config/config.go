package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Engine holds the graph construction and query tunables
	Engine EngineConfig `mapstructure:"engine"`

	// Storage configuration
	Storage StorageConfig `mapstructure:"storage"`

	// NLP configuration
	NLP NLPConfig `mapstructure:"nlp"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Extraction configuration
	Extraction ExtractionConfig `mapstructure:"extraction"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath   string `mapstructure:"parquet_path"`
	TokenTracking bool   `mapstructure:"token_tracking"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json, color
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// EngineConfig holds the tunables of the graph engine.
type EngineConfig struct {
	MergeThreshold      float64 `mapstructure:"merge_threshold"`
	DedupeBatchCeiling  int     `mapstructure:"dedupe_batch_ceiling"`
	TextOnlyPenalty     float64 `mapstructure:"text_only_penalty"`
	MaxSyntheticEdges   int     `mapstructure:"max_synthetic_edges"`
	SyntheticEdgeWeight float64 `mapstructure:"synthetic_edge_weight"`
	ClusterThreshold    int     `mapstructure:"cluster_threshold"`
	ClusterAlgorithm    string  `mapstructure:"cluster_algorithm"` // louvain, label_propagation
	ClusterResolution   float64 `mapstructure:"cluster_resolution"`
	AllowSelfLoops      bool    `mapstructure:"allow_self_loops"`
	MinConcepts         int     `mapstructure:"min_concepts"`
	MaxPaths            int     `mapstructure:"max_paths"`
	MaxGraphs           int     `mapstructure:"max_graphs"`
	GraphTTL            int     `mapstructure:"graph_ttl"` // in seconds, 0 disables expiry
	HistoryLimit        int     `mapstructure:"history_limit"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	Driver   string `mapstructure:"driver"` // none, file, badger, neo4j, ladybug
	Path     string `mapstructure:"path"`   // directory for file, badger and ladybug
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// NLPConfig holds NLP configuration
type NLPConfig struct {
	// Models is a map of model configurations ("default" for extraction, "explainer" for narratives)
	Models map[string]NLPModelConfig `mapstructure:"models"`

	MaxRetries int `mapstructure:"max_retries"`
}

// NLPModelConfig holds configuration for a specific model
type NLPModelConfig struct {
	Provider    string  `mapstructure:"provider"` // openai, openai_compatible, rustbert
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider    string `mapstructure:"provider"` // openai, embedeverything, none
	Model       string `mapstructure:"model"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Dimensions  int    `mapstructure:"dimensions"`
	BatchSize   int    `mapstructure:"batch_size"`
	CacheSize   int    `mapstructure:"cache_size"`
	Concurrency int    `mapstructure:"concurrency"`
}

// ExtractionConfig holds concept and relationship extraction configuration
type ExtractionConfig struct {
	Provider            string   `mapstructure:"provider"` // llm, gliner
	MaxConcepts         int      `mapstructure:"max_concepts"`
	MinImportance       float64  `mapstructure:"min_importance"`
	MinStrength         float64  `mapstructure:"min_strength"`
	MinTextLength       int      `mapstructure:"min_text_length"`
	MaxTextLength       int      `mapstructure:"max_text_length"`
	Timeout             int      `mapstructure:"timeout"` // in seconds
	GLiNERModel         string   `mapstructure:"gliner_model"`
	GLiNERRelationModel string   `mapstructure:"gliner_relation_model"`
	Labels              []string `mapstructure:"labels"`
}

// TimeoutDuration returns the extraction timeout as a duration.
func (c ExtractionConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// TTL returns the idle expiry of in-memory graphs.
func (c EngineConfig) TTL() time.Duration {
	return time.Duration(c.GraphTTL) * time.Second
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that the numeric tunables are within range.
func (c *Config) Validate() error {
	if c.Engine.MergeThreshold <= 0 || c.Engine.MergeThreshold > 1 {
		return fmt.Errorf("engine.merge_threshold must be in (0, 1], got %v", c.Engine.MergeThreshold)
	}
	if c.Engine.SyntheticEdgeWeight < 0 || c.Engine.SyntheticEdgeWeight > 1 {
		return fmt.Errorf("engine.synthetic_edge_weight must be in [0, 1], got %v", c.Engine.SyntheticEdgeWeight)
	}
	if c.Engine.MinConcepts < 1 {
		return fmt.Errorf("engine.min_concepts must be at least 1, got %d", c.Engine.MinConcepts)
	}
	if c.Extraction.MinImportance < 0 || c.Extraction.MinImportance > 1 {
		return fmt.Errorf("extraction.min_importance must be in [0, 1], got %v", c.Extraction.MinImportance)
	}
	if c.Extraction.MinStrength < 0 || c.Extraction.MinStrength > 1 {
		return fmt.Errorf("extraction.min_strength must be in [0, 1], got %v", c.Extraction.MinStrength)
	}
	if c.Extraction.MinTextLength > c.Extraction.MaxTextLength {
		return fmt.Errorf("extraction.min_text_length (%d) exceeds max_text_length (%d)",
			c.Extraction.MinTextLength, c.Extraction.MaxTextLength)
	}
	switch c.Storage.Driver {
	case "", "none", "file", "badger", "neo4j", "ladybug":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "color")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Engine defaults
	viper.SetDefault("engine.merge_threshold", 0.92)
	viper.SetDefault("engine.dedupe_batch_ceiling", 200)
	viper.SetDefault("engine.text_only_penalty", 0.5)
	viper.SetDefault("engine.max_synthetic_edges", 50)
	viper.SetDefault("engine.synthetic_edge_weight", 0.3)
	viper.SetDefault("engine.cluster_threshold", 100)
	viper.SetDefault("engine.cluster_algorithm", "louvain")
	viper.SetDefault("engine.cluster_resolution", 1.0)
	viper.SetDefault("engine.allow_self_loops", false)
	viper.SetDefault("engine.min_concepts", 1)
	viper.SetDefault("engine.max_paths", 100)
	viper.SetDefault("engine.max_graphs", 1000)
	viper.SetDefault("engine.graph_ttl", 0)
	viper.SetDefault("engine.history_limit", 5)

	// Storage defaults
	viper.SetDefault("storage.driver", "none")
	viper.SetDefault("storage.path", "./mindgraph_data")
	viper.SetDefault("storage.uri", "bolt://localhost:7687")
	viper.SetDefault("storage.username", "")
	viper.SetDefault("storage.password", "")
	viper.SetDefault("storage.database", "")

	viper.SetDefault("nlp.models.default.provider", "openai")
	viper.SetDefault("nlp.models.default.model", "gpt-4o-mini")
	viper.SetDefault("nlp.models.default.temperature", 0.2)
	viper.SetDefault("nlp.models.default.max_tokens", 4096)
	viper.SetDefault("nlp.max_retries", 3)

	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.batch_size", 100)
	viper.SetDefault("embedding.cache_size", 4096)
	viper.SetDefault("embedding.concurrency", 4)

	viper.SetDefault("extraction.provider", "llm")
	viper.SetDefault("extraction.max_concepts", 10)
	viper.SetDefault("extraction.min_importance", 0.5)
	viper.SetDefault("extraction.min_strength", 0.5)
	viper.SetDefault("extraction.min_text_length", 100)
	viper.SetDefault("extraction.max_text_length", 50000)
	viper.SetDefault("extraction.timeout", 120)
	viper.SetDefault("extraction.gliner_model", "onnx-community/gliner_small-v2.1")
	viper.SetDefault("extraction.gliner_relation_model", "knowledgator/gliner-multitask-large-v0.5")

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	viper.SetDefault("alert.smtp_port", 587)

	// Telemetry defaults
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", filepath.Join(home, ".mindgraph", "telemetry"))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Initialize Models map if nil
	if config.NLP.Models == nil {
		config.NLP.Models = make(map[string]NLPModelConfig)
	}

	defaultModel := config.NLP.Models["default"]
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && defaultModel.APIKey == "" {
		defaultModel.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		defaultModel.BaseURL = baseURL
	}
	config.NLP.Models["default"] = defaultModel

	if explainer, ok := config.NLP.Models["explainer"]; ok {
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && explainer.APIKey == "" {
			explainer.APIKey = apiKey
		}
		config.NLP.Models["explainer"] = explainer
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && config.Embedding.APIKey == "" {
		config.Embedding.APIKey = apiKey
	}

	// Storage credentials
	if driver := os.Getenv("MINDGRAPH_STORAGE_DRIVER"); driver != "" {
		config.Storage.Driver = driver
	}
	if path := os.Getenv("MINDGRAPH_STORAGE_PATH"); path != "" {
		config.Storage.Path = path
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Storage.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Storage.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Storage.Password = pass
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
