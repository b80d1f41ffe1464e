// Package gliner runs GLiNER span and relation models locally through
// go-gline-rs and exposes them as a concept extractor.
package gliner

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/soundprediction/go-gline-rs/pkg/gline"
)

// Client owns the loaded GLiNER models. Model calls are serialised.
type Client struct {
	spanModel     *gline.Model
	relationModel *gline.RelationModel
	schemas       map[string]bool
	mu            sync.Mutex
}

// Entity is a labelled span found in a text.
type Entity struct {
	Text  string
	Label string
	Score float32
}

// Relation links two entity spans.
type Relation struct {
	Source string
	Target string
	Type   string
	Score  float32
}

// NewClient loads a span model from a local directory holding model.onnx and
// tokenizer.json, or from a Hugging Face model id.
func NewClient(modelID string) (*Client, error) {
	if err := gline.Init(); err != nil {
		return nil, fmt.Errorf("failed to init gline: %w", err)
	}

	var (
		m   *gline.Model
		err error
	)
	if isLocal(modelID) {
		m, err = gline.NewSpanModel(filepath.Join(modelID, "model.onnx"), filepath.Join(modelID, "tokenizer.json"))
	} else {
		m, err = gline.NewSpanModelFromHF(modelID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load span model %s: %w", modelID, err)
	}
	return &Client{spanModel: m, schemas: make(map[string]bool)}, nil
}

// LoadRelationModel loads the model used for relationship extraction.
func (c *Client) LoadRelationModel(modelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		m   *gline.RelationModel
		err error
	)
	if isLocal(modelID) {
		m, err = gline.NewRelationModel(filepath.Join(modelID, "model.onnx"), filepath.Join(modelID, "tokenizer.json"))
	} else {
		m, err = gline.NewRelationModelFromHF(modelID)
	}
	if err != nil {
		return fmt.Errorf("failed to load relation model %s: %w", modelID, err)
	}
	if c.relationModel != nil {
		c.relationModel.Close()
	}
	c.relationModel = m
	c.schemas = make(map[string]bool)
	return nil
}

// HasRelationModel reports whether a relation model is loaded.
func (c *Client) HasRelationModel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.relationModel != nil
}

func isLocal(modelID string) bool {
	_, err := os.Stat(modelID)
	return err == nil
}

// Close frees both models.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.spanModel != nil {
		c.spanModel.Close()
		c.spanModel = nil
	}
	if c.relationModel != nil {
		c.relationModel.Close()
		c.relationModel = nil
	}
	return nil
}

// ExtractEntities finds spans of text matching any of labels.
func (c *Client) ExtractEntities(text string, labels []string) ([]Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.spanModel == nil {
		return nil, fmt.Errorf("span model not loaded")
	}

	results, err := c.spanModel.Predict([]string{text}, labels)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []Entity{}, nil
	}

	entities := make([]Entity, 0, len(results[0]))
	for _, e := range results[0] {
		entities = append(entities, Entity{Text: e.Text, Label: e.Label, Score: e.Probability})
	}
	return entities, nil
}

// ExtractRelations finds relations between entities of entityLabels. schema
// maps each relation type to its allowed head and tail labels; a relation type
// is registered with the model the first time it is seen.
func (c *Client) ExtractRelations(text string, entityLabels []string, schema map[string][2][]string) ([]Relation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.relationModel == nil {
		return nil, fmt.Errorf("relation model not loaded")
	}

	for rel, heads := range schema {
		if c.schemas[rel] {
			continue
		}
		if err := c.relationModel.AddRelationSchema(rel, heads[0], heads[1]); err != nil {
			return nil, fmt.Errorf("failed to add schema for %s: %w", rel, err)
		}
		c.schemas[rel] = true
	}

	results, err := c.relationModel.Predict([]string{text}, entityLabels)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []Relation{}, nil
	}

	relations := make([]Relation, 0, len(results[0]))
	for _, r := range results[0] {
		relations = append(relations, Relation{
			Source: r.Source,
			Target: r.Target,
			Type:   r.Relation,
			Score:  r.Probability,
		})
	}
	return relations, nil
}
