package mindgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soundprediction/mindgraph/pkg/alert"
	"github.com/soundprediction/mindgraph/pkg/community"
	"github.com/soundprediction/mindgraph/pkg/config"
	"github.com/soundprediction/mindgraph/pkg/connectivity"
	"github.com/soundprediction/mindgraph/pkg/dedupe"
	"github.com/soundprediction/mindgraph/pkg/driver"
	"github.com/soundprediction/mindgraph/pkg/embedder"
	"github.com/soundprediction/mindgraph/pkg/extraction"
	"github.com/soundprediction/mindgraph/pkg/gliner"
	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/rustbert"
)

// Extraction providers.
const (
	ExtractionLLM      = "llm"
	ExtractionGLiNER   = "gliner"
	ExtractionRustBert = "rustbert"
)

// NewFromConfig builds a client and all of its collaborators from cfg: the
// storage driver, the language models, the embedder and the extractor.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	alerter := alert.New(cfg.Alert, logger)

	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	drv, err := driver.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage driver: %w", err)
	}
	if drv != nil {
		closers = append(closers, drv.Close)
	}

	var local *rustbert.Client
	rustBert := func() *rustbert.Client {
		if local == nil {
			local = rustbert.NewClient(rustbert.Config{Logger: logger})
		}
		return local
	}

	explainer, err := newLanguageModel(cfg, "explainer", alerter, logger, rustBert)
	if err != nil {
		cleanup()
		return nil, err
	}
	if explainer != nil {
		closers = append(closers, explainer.Close)
	}

	extractor, err := newExtractor(cfg, alerter, logger, rustBert)
	if err != nil {
		cleanup()
		return nil, err
	}
	if extractor != nil {
		closers = append(closers, extractor.Close)
	}

	embedderClient, err := newEmbedder(cfg, alerter, logger)
	if err != nil {
		cleanup()
		return nil, err
	}

	clientConfig := ConfigFromSettings(cfg)
	clientConfig.LanguageModels.Explainer = explainer

	client, err := NewClient(drv, extractor, embedderClient, clientConfig, logger)
	if err != nil {
		if embedderClient != nil {
			_ = embedderClient.Close()
		}
		cleanup()
		return nil, err
	}
	logger.Info("mindgraph client ready",
		"storage", cfg.Storage.Driver,
		"extraction", cfg.Extraction.Provider,
		"embedding", cfg.Embedding.Provider,
		"explainer", explainer != nil)
	return client, nil
}

// ConfigFromSettings maps the engine, extraction and embedding settings onto a
// client Config.
func ConfigFromSettings(cfg *config.Config) *Config {
	c := DefaultConfig()
	e := cfg.Engine
	c.Dedupe = dedupe.Config{
		MergeThreshold:  e.MergeThreshold,
		BatchCeiling:    e.DedupeBatchCeiling,
		TextOnlyPenalty: e.TextOnlyPenalty,
	}
	c.Connectivity = connectivity.Config{
		MaxSyntheticEdges: e.MaxSyntheticEdges,
		SyntheticWeight:   e.SyntheticEdgeWeight,
	}
	c.Clustering = community.Config{
		Threshold:  e.ClusterThreshold,
		Algorithm:  e.ClusterAlgorithm,
		Resolution: e.ClusterResolution,
	}
	c.AllowSelfLoops = e.AllowSelfLoops
	c.MinConcepts = e.MinConcepts
	c.MaxPaths = e.MaxPaths
	c.MaxGraphs = e.MaxGraphs
	c.GraphTTL = e.TTL()
	c.HistoryLimit = e.HistoryLimit

	x := cfg.Extraction
	c.Extraction = extraction.Options{
		MaxConcepts:   x.MaxConcepts,
		MinImportance: x.MinImportance,
		MinStrength:   x.MinStrength,
	}.WithDefaults()
	c.MinTextLength = x.MinTextLength
	c.MaxTextLength = x.MaxTextLength
	if t := x.TimeoutDuration(); t > 0 {
		c.ExtractionTimeout = t
	}

	c.EmbeddingBatchSize = cfg.Embedding.BatchSize
	c.EmbeddingConcurrency = cfg.Embedding.Concurrency
	return c
}

// newLanguageModel builds the model registered under name, falling back to
// the default model. It returns nil when neither is usable.
func newLanguageModel(cfg *config.Config, name string, alerter alert.Alerter, logger *slog.Logger, local func() *rustbert.Client) (nlp.Client, error) {
	m, ok := cfg.NLP.Models[name]
	if !ok {
		m, ok = cfg.NLP.Models["default"]
	}
	if !ok {
		return nil, nil
	}

	var client nlp.Client
	switch nlp.ProviderID(m.Provider) {
	case nlp.ProviderRustBert:
		adapter, err := rustbert.NewLLMAdapter(local(), nlp.TaskTextGeneration)
		if err != nil {
			return nil, err
		}
		client = adapter
	case nlp.ProviderOpenAI, nlp.ProviderOpenAICompatible, "":
		if m.APIKey == "" && m.BaseURL == "" {
			logger.Warn("no API key for language model, disabling it", "model", name)
			return nil, nil
		}
		nlpConfig := nlp.Config{Model: m.Model, BaseURL: m.BaseURL}
		if m.Temperature > 0 {
			nlpConfig.Temperature = &m.Temperature
		}
		if m.MaxTokens > 0 {
			nlpConfig.MaxTokens = &m.MaxTokens
		}
		openaiClient, err := nlp.NewOpenAIClient(m.APIKey, nlpConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s model: %w", name, err)
		}
		client = openaiClient
	default:
		return nil, fmt.Errorf("unsupported NLP provider %q for %s", m.Provider, name)
	}

	opts := nlp.WrapOptions{
		Name:           name,
		CircuitBreaker: &cfg.CircuitBreaker,
		Alerter:        alerter,
		Logger:         logger,
	}
	if !nlp.ProviderID(m.Provider).IsLocal() {
		retry := nlp.DefaultRetryConfig()
		retry.MaxRetries = cfg.NLP.MaxRetries
		opts.Retry = retry
	}
	if cfg.Telemetry.TokenTracking && cfg.Telemetry.ParquetPath != "" {
		tracker, err := nlp.NewTokenTracker(cfg.Telemetry.ParquetPath)
		if err != nil {
			logger.Warn("token tracking disabled", "model", name, "error", err)
		} else {
			opts.Tracker = tracker
		}
	}
	return nlp.Wrap(client, opts), nil
}

func newExtractor(cfg *config.Config, alerter alert.Alerter, logger *slog.Logger, local func() *rustbert.Client) (extraction.Extractor, error) {
	switch cfg.Extraction.Provider {
	case ExtractionLLM, "":
		if m := cfg.NLP.Models["default"]; nlp.ProviderID(m.Provider) == nlp.ProviderRustBert {
			return nil, fmt.Errorf("rustbert cannot produce structured extractions, set extraction.provider to %q", ExtractionRustBert)
		}
		model, err := newLanguageModel(cfg, "default", alerter, logger, local)
		if err != nil || model == nil {
			return nil, err
		}
		return extraction.NewLLMExtractor(model, logger), nil

	case ExtractionGLiNER:
		client, err := gliner.NewClient(cfg.Extraction.GLiNERModel)
		if err != nil {
			return nil, err
		}
		if id := cfg.Extraction.GLiNERRelationModel; id != "" {
			if err := client.LoadRelationModel(id); err != nil {
				logger.Warn("GLiNER relation model unavailable, relationships come from connectivity only",
					"model", id, "error", err)
			}
		}
		return gliner.NewExtractor(client, cfg.Extraction.Labels, logger), nil

	case ExtractionRustBert:
		client := local()
		if err := client.LoadNERModel(); err != nil {
			return nil, err
		}
		return rustbert.NewNERExtractor(client), nil
	}
	return nil, fmt.Errorf("unsupported extraction provider %q", cfg.Extraction.Provider)
}

// newEmbedder builds the embedding client with its cache and circuit breaker.
// Embedding is optional: provider "none" yields a nil client.
func newEmbedder(cfg *config.Config, alerter alert.Alerter, logger *slog.Logger) (embedder.Client, error) {
	e := cfg.Embedding
	ecfg := embedder.Config{
		Model:      e.Model,
		BaseURL:    e.BaseURL,
		Dimensions: e.Dimensions,
		BatchSize:  e.BatchSize,
	}

	var client embedder.Client
	switch nlp.ProviderID(e.Provider) {
	case "none", "":
		return nil, nil
	case nlp.ProviderOpenAI, nlp.ProviderOpenAICompatible:
		if e.APIKey == "" && e.BaseURL == "" {
			logger.Warn("no API key for embeddings, nodes will be text-only")
			return nil, nil
		}
		client = embedder.NewOpenAIEmbedder(e.APIKey, ecfg)
	case nlp.ProviderEmbedEverything:
		local, err := embedder.NewEmbedEverythingClient(ecfg)
		if err != nil {
			return nil, err
		}
		client = local
	default:
		return nil, errors.New("unsupported embedding provider " + e.Provider)
	}

	if e.CacheSize > 0 {
		client = embedder.NewCachedClient(client, e.CacheSize)
	}
	if cfg.CircuitBreaker.Enabled {
		client = embedder.NewCircuitBreakerClient(client, cfg.CircuitBreaker, alerter, logger)
	}
	return client, nil
}
