package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/soundprediction/mindgraph/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	BatchSize   int
	Concurrency int
	Logger      *slog.Logger
}

// Service fans embedding requests out over batches and reports every failure
// as types.ErrEmbeddingUnavailable. A Service without a client is valid and
// always unavailable.
type Service struct {
	client      Client
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// NewService creates a Service. client may be nil.
func NewService(client Client, opts ServiceOptions) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		client:      client,
		batchSize:   opts.BatchSize,
		concurrency: min(opts.Concurrency, utils.GetSemaphoreLimit()),
		logger:      opts.Logger,
	}
}

// Available reports whether an embedding client is configured.
func (s *Service) Available() bool {
	return s != nil && s.client != nil
}

// Dimensions returns the client's vector length, or 0.
func (s *Service) Dimensions() int {
	if !s.Available() {
		return 0
	}
	return s.client.Dimensions()
}

// Embed embeds a single text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbed embeds texts concurrently in batches and returns vectors in input
// order. Either every text is embedded or an error is returned.
func (s *Service) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if !s.Available() {
		return nil, unavailable(errors.New("no embedding provider configured"))
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for bi, batch := range utils.Batch(texts, s.batchSize) {
		offset := bi * s.batchSize
		g.Go(func() (err error) {
			defer utils.RecoverAsError(&err)

			vectors, err := s.client.Embed(gctx, batch)
			if err != nil {
				return err
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
			}
			copy(out[offset:], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "embedding batch failed", "texts", len(texts), "error", err)
		return nil, unavailable(err)
	}

	dim := len(out[0])
	for i, v := range out {
		if len(v) == 0 || len(v) != dim {
			return nil, unavailable(fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				types.ErrDimensionMismatch, i, len(v), dim))
		}
	}
	return out, nil
}

// Close closes the client.
func (s *Service) Close() error {
	if !s.Available() {
		return nil
	}
	return s.client.Close()
}

func unavailable(err error) error {
	return nlp.AsCollaboratorError("embedding", errors.Join(types.ErrEmbeddingUnavailable, err))
}
