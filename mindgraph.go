package mindgraph

import (
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/soundprediction/mindgraph/pkg/community"
	"github.com/soundprediction/mindgraph/pkg/connectivity"
	"github.com/soundprediction/mindgraph/pkg/dedupe"
	"github.com/soundprediction/mindgraph/pkg/driver"
	"github.com/soundprediction/mindgraph/pkg/embedder"
	"github.com/soundprediction/mindgraph/pkg/extraction"
	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/prompts"
	"github.com/soundprediction/mindgraph/pkg/search"
	"github.com/soundprediction/mindgraph/pkg/store"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// MindGraph is the main interface for building and querying knowledge graphs.
type MindGraph interface {
	GraphBuilder
	GraphReader
	GraphNavigator
	GraphReasoner
	GraphMutator
	EventSource

	// Close releases every collaborator and the storage driver.
	Close() error
}

var _ MindGraph = (*Client)(nil)

// Client is the main implementation of the MindGraph interface.
type Client struct {
	store     *store.Store
	driver    driver.GraphDriver
	extractor extraction.Extractor
	embedder  *embedder.Service
	dedupe    *dedupe.Deduplicator
	enforcer  *connectivity.Enforcer
	searcher  *search.Searcher
	community *community.Detector
	prompts   *prompts.Library
	config    *Config
	logger    *slog.Logger

	// Specialized language model clients
	languageModels LanguageModels

	loads    singleflight.Group
	resident residentSet
	events   *broker
}

// LanguageModels holds the language model clients used after construction.
type LanguageModels struct {
	// Explainer writes relationship narratives, answers and summaries.
	Explainer nlp.Client
}

// Config holds configuration for the MindGraph client.
type Config struct {
	Dedupe       dedupe.Config
	Connectivity connectivity.Config
	Clustering   community.Config
	Extraction   extraction.Options

	// AllowSelfLoops permits edges from a node to itself.
	AllowSelfLoops bool
	// MinConcepts is the number of concepts a build needs after deduplication.
	MinConcepts int
	// MaxPaths bounds path enumeration in explanations.
	MaxPaths int

	MinTextLength     int
	MaxTextLength     int
	ExtractionTimeout time.Duration

	EmbeddingBatchSize   int
	EmbeddingConcurrency int

	// MaxGraphs bounds the graphs kept in memory; the least recently used
	// one is evicted beyond it. 0 means unbounded.
	MaxGraphs int
	// GraphTTL evicts graphs not accessed for this long. 0 disables expiry.
	GraphTTL time.Duration

	// HistoryLimit is the number of previous exchanges sent with a question.
	HistoryLimit int

	LanguageModels LanguageModels
}

// BuildOptions overrides extraction settings for one BuildGraphFromText call.
type BuildOptions struct {
	MaxConcepts   int
	MinImportance float64
	MinStrength   float64
	RelationTypes []string
	// Timeout bounds the collaborator calls. 0 uses Config.ExtractionTimeout.
	Timeout time.Duration
}

// ExplainOptions tunes ExplainRelationship.
type ExplainOptions struct {
	// MaxHops bounds path length. 0 uses search.DefaultMaxHops; larger values
	// are rejected.
	MaxHops int
	// SkipNarrative omits the language model narrative.
	SkipNarrative bool
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		Dedupe:            dedupe.DefaultConfig(),
		Connectivity:      connectivity.DefaultConfig(),
		Clustering:        community.DefaultConfig(),
		Extraction:        extraction.Options{}.WithDefaults(),
		MinConcepts:       1,
		MaxPaths:          search.DefaultMaxPaths,
		MinTextLength:     extraction.DefaultMinTextLength,
		MaxTextLength:     extraction.DefaultMaxTextLength,
		ExtractionTimeout: 120 * time.Second,
		HistoryLimit:      prompts.DefaultHistoryLimit,
	}
}

// NewClient creates a new MindGraph client. drv, extractor and embedderClient
// may be nil: without a driver graphs live only in memory, without an
// extractor only BuildGraph is available and without an embedder every node
// is text-only.
func NewClient(drv driver.GraphDriver, extractor extraction.Extractor, embedderClient embedder.Client, config *Config, logger *slog.Logger) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MinConcepts < 1 {
		config.MinConcepts = 1
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = prompts.DefaultHistoryLimit
	}
	if config.ExtractionTimeout <= 0 {
		config.ExtractionTimeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	detector, err := community.NewDetector(config.Clustering, logger)
	if err != nil {
		return nil, err
	}

	st := store.New(store.Options{AllowSelfLoops: config.AllowSelfLoops}, logger)
	c := &Client{
		store:     st,
		driver:    drv,
		extractor: extractor,
		embedder: embedder.NewService(embedderClient, embedder.ServiceOptions{
			BatchSize:   config.EmbeddingBatchSize,
			Concurrency: config.EmbeddingConcurrency,
			Logger:      logger,
		}),
		dedupe:         dedupe.New(config.Dedupe, logger),
		enforcer:       connectivity.New(config.Connectivity, logger),
		searcher:       search.NewSearcher(st, logger).WithMaxPaths(config.MaxPaths),
		community:      detector,
		prompts:        prompts.NewLibrary(),
		config:         config,
		logger:         logger,
		languageModels: config.LanguageModels,
		events:         newBroker(logger),
	}
	c.resident = newResidentSet(config.MaxGraphs, config.GraphTTL, c.onEvict)
	return c, nil
}

// GetDriver returns the storage driver, or nil.
func (c *Client) GetDriver() driver.GraphDriver {
	return c.driver
}

// GetStore returns the in-memory graph store.
func (c *Client) GetStore() *store.Store {
	return c.store
}

// GetExtractor returns the extraction collaborator, or nil.
func (c *Client) GetExtractor() extraction.Extractor {
	return c.extractor
}

// Close closes all collaborators and the driver. With a GraphTTL set, the
// expiry goroutine of the resident set is not stopped and outlives the client.
func (c *Client) Close() error {
	c.events.close()

	var errs []error
	if c.extractor != nil {
		errs = append(errs, c.extractor.Close())
	}
	errs = append(errs, c.embedder.Close())
	if c.languageModels.Explainer != nil {
		errs = append(errs, c.languageModels.Explainer.Close())
	}
	if c.driver != nil {
		errs = append(errs, c.driver.Close())
	}
	return errors.Join(errs...)
}

// ErrNoLanguageModel is returned by operations that need an explainer model
// when none is configured.
var ErrNoLanguageModel = errors.New("no language model configured")

func (c *Client) explainer(name string) (nlp.Client, error) {
	if c.languageModels.Explainer == nil {
		return nil, &types.CollaboratorError{Collaborator: name, Err: ErrNoLanguageModel}
	}
	return c.languageModels.Explainer, nil
}
