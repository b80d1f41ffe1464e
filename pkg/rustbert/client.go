// Package rustbert runs local transformer pipelines through go-rust-bert.
// Models are loaded lazily on first use and calls are serialised.
package rustbert

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/soundprediction/go-rust-bert/pkg/rustbert"
)

// Client wraps the go-rust-bert pipelines used by mindgraph.
type Client struct {
	config             Config
	logger             *slog.Logger
	nerModel           *rustbert.NERModel
	summarizationModel *rustbert.SummarizationModel
	textGenModel       *rustbert.TextGenerationModel
	mu                 sync.Mutex
}

// Config selects the models to load. Empty ids use the library defaults.
type Config struct {
	NERModelID string
	Logger     *slog.Logger
}

// NewClient creates a new RustBert client.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{config: cfg, logger: logger}
}

// LoadNERModel loads the NER model. A configured model id is downloaded and
// loaded as a BERT token classifier.
func (c *Client) LoadNERModel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadNERLocked()
}

func (c *Client) loadNERLocked() error {
	if c.nerModel != nil {
		return nil
	}

	if c.config.NERModelID != "" {
		c.logger.Info("loading custom NER model", "model", c.config.NERModelID)
		modelPath, configPath, vocabPath, mergesPath, err := rustbert.DownloadArtifacts(c.config.NERModelID, "")
		if err != nil {
			return fmt.Errorf("failed to download artifacts for %s: %w", c.config.NERModelID, err)
		}
		m, err := rustbert.NewNERModelFromFiles(modelPath, configPath, vocabPath, mergesPath, rustbert.ModelTypeBert)
		if err != nil {
			return fmt.Errorf("failed to create custom NER model: %w", err)
		}
		c.nerModel = m
		return nil
	}

	m, err := rustbert.NewNERModel()
	if err != nil {
		return fmt.Errorf("failed to create NER model: %w", err)
	}
	c.nerModel = m
	return nil
}

// Close closes all loaded models.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nerModel != nil {
		c.nerModel.Close()
		c.nerModel = nil
	}
	if c.summarizationModel != nil {
		c.summarizationModel.Close()
		c.summarizationModel = nil
	}
	c.textGenModel = nil
	return nil
}

// Entity represents an extracted entity
type Entity struct {
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ExtractEntities extracts named entities from text.
func (c *Client) ExtractEntities(text string) ([]Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadNERLocked(); err != nil {
		return nil, err
	}

	results, err := c.nerModel.Predict(text)
	if err != nil {
		return nil, fmt.Errorf("NER prediction failed: %w", err)
	}

	entities := make([]Entity, len(results))
	for i, r := range results {
		entities[i] = Entity{Text: r.Word, Label: r.Label, Score: r.Score}
	}
	return entities, nil
}

// Summarize generates a summary of the text.
func (c *Client) Summarize(text string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.summarizationModel == nil {
		m, err := rustbert.NewSummarizationModel()
		if err != nil {
			return nil, fmt.Errorf("failed to create Summarization model: %w", err)
		}
		c.summarizationModel = m
	}

	results, err := c.summarizationModel.Summarize(text)
	if err != nil {
		return nil, fmt.Errorf("summarization failed: %w", err)
	}
	return results, nil
}

// GenerateText generates text from a prompt.
func (c *Client) GenerateText(prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.textGenModel == nil {
		m, err := rustbert.NewTextGenerationModel()
		if err != nil {
			return "", fmt.Errorf("failed to create Text Generation model: %w", err)
		}
		c.textGenModel = m
	}

	result, err := c.textGenModel.Generate(prompt, "")
	if err != nil {
		return "", fmt.Errorf("text generation failed: %w", err)
	}
	return result, nil
}
