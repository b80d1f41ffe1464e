// Package dedupe merges near-duplicate concepts before they become graph nodes.
//
// Candidates are compared by cosine similarity of their embeddings against the
// concepts already accepted in the batch. A candidate whose best match reaches
// the merge threshold is folded into that concept; otherwise it is accepted as
// a new one. Accepted concepts keep the embedding they were accepted with, so
// re-running the deduplicator over its own output merges nothing further.
//
// Batches larger than BatchCeiling are split into about sqrt(n) buckets.
// Candidates are compared against bucket centroids first and then only
// against the members of the nearest bucket.
package dedupe

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/soundprediction/mindgraph/pkg/utils"
)

const (
	DefaultMergeThreshold   = 0.92
	DefaultBatchCeiling     = 200
	DefaultTextOnlyPenalty = 0.5
)

// Config tunes the deduplicator.
type Config struct {
	MergeThreshold float64 `mapstructure:"merge_threshold"`
	BatchCeiling   int     `mapstructure:"batch_ceiling"`
	// TextOnlyPenalty scales the confidence of concepts without an embedding.
	TextOnlyPenalty float64 `mapstructure:"text_only_penalty"`
}

// DefaultConfig returns the default deduplication settings.
func DefaultConfig() Config {
	return Config{
		MergeThreshold:  DefaultMergeThreshold,
		BatchCeiling:    DefaultBatchCeiling,
		TextOnlyPenalty: DefaultTextOnlyPenalty,
	}
}

// Entry is an accepted concept.
type Entry struct {
	// Key is the provisional key relationships are remapped to. For seeded
	// entries it is the existing node id.
	Key string
	// NodeID is set when the entry stands for an existing graph node.
	NodeID     string
	Concept    types.Concept
	Labels     []string
	Excerpts   []string
	Confidence float64
	TextOnly   bool
	// Absorbed counts candidates merged into this entry.
	Absorbed int
	// Changed is true when a merge altered the entry.
	Changed bool
}

// Result is the output of a deduplication run.
type Result struct {
	Entries []*Entry
	Merged  int
	Dropped int
	// Bucketed is true when the sub-quadratic path was used.
	Bucketed bool

	byLabel     map[string]*Entry
	comparisons int
}

// Resolve maps a concept label, or any label merged into a concept, to its entry.
func (r *Result) Resolve(label string) (*Entry, bool) {
	e, ok := r.byLabel[types.NormalizeLabel(label)]
	return e, ok
}

// Deduplicator merges near-duplicate concepts.
type Deduplicator struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Deduplicator. Zero config fields take their defaults.
func New(cfg Config, logger *slog.Logger) *Deduplicator {
	def := DefaultConfig()
	if cfg.MergeThreshold <= 0 {
		cfg.MergeThreshold = def.MergeThreshold
	}
	if cfg.BatchCeiling <= 0 {
		cfg.BatchCeiling = def.BatchCeiling
	}
	if cfg.TextOnlyPenalty <= 0 || cfg.TextOnlyPenalty > 1 {
		cfg.TextOnlyPenalty = def.TextOnlyPenalty
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (d *Deduplicator) Config() Config { return d.cfg }

// Dedupe merges a batch of candidates.
func (d *Deduplicator) Dedupe(candidates []types.Concept) (*Result, error) {
	return d.DedupeAgainst(nil, candidates)
}

// DedupeAgainst merges candidates into seed entries (existing graph nodes)
// and into each other. Seeds keep their keys; new entries get provisional
// keys concept_<n>.
func (d *Deduplicator) DedupeAgainst(seeds []*Entry, candidates []types.Concept) (*Result, error) {
	r := &Result{byLabel: make(map[string]*Entry)}
	n := len(seeds) + len(candidates)
	idx := newIndex(n, n > d.cfg.BatchCeiling)
	r.Bucketed = idx.bucketed

	dimension := 0
	checkDim := func(emb []float32) error {
		if len(emb) == 0 {
			return nil
		}
		if dimension == 0 {
			dimension = len(emb)
			return nil
		}
		if len(emb) != dimension {
			return fmt.Errorf("%w: concept embedding has %d dimensions, batch uses %d",
				types.ErrDimensionMismatch, len(emb), dimension)
		}
		return nil
	}

	for _, s := range seeds {
		if err := checkDim(s.Concept.Embedding); err != nil {
			return nil, err
		}
		r.Entries = append(r.Entries, s)
		r.register(s)
		if !s.TextOnly {
			idx.add(s)
		}
	}

	next := 0
	for _, c := range candidates {
		c = normalize(c)
		if c.Label == "" {
			r.Dropped++
			continue
		}
		if err := checkDim(c.Embedding); err != nil {
			return nil, err
		}

		if len(c.Embedding) > 0 {
			if match, score := idx.best(c.Embedding); match != nil && score >= d.cfg.MergeThreshold {
				d.merge(match, c)
				r.register(match)
				r.Merged++
				d.logger.Debug("merged concept", "label", c.Label, "into", match.Concept.Label, "similarity", score)
				continue
			}
		}

		next++
		e := &Entry{
			Key:        fmt.Sprintf("concept_%d", next),
			Concept:    c,
			Labels:     []string{c.Label},
			Confidence: c.Importance,
		}
		if c.SourceExcerpt != "" {
			e.Excerpts = []string{c.SourceExcerpt}
		}
		if len(c.Embedding) == 0 {
			e.TextOnly = true
			e.Confidence = c.Importance * d.cfg.TextOnlyPenalty
		} else {
			idx.add(e)
		}
		r.Entries = append(r.Entries, e)
		r.register(e)
	}
	r.comparisons = idx.comparisons
	return r, nil
}

func (r *Result) register(e *Entry) {
	for _, l := range e.Labels {
		key := types.NormalizeLabel(l)
		if _, taken := r.byLabel[key]; !taken {
			r.byLabel[key] = e
		}
	}
}

// merge folds candidate c into e.
func (d *Deduplicator) merge(e *Entry, c types.Concept) {
	e.Absorbed++
	e.Changed = true
	if c.Importance > e.Concept.Importance {
		e.Concept.Label = c.Label
		e.Concept.Description = c.Description
		e.Concept.Importance = c.Importance
		if c.Tier != types.TierUnset {
			e.Concept.Tier = c.Tier
		}
		e.Concept.Metadata = unionMetadata(c.Metadata, e.Concept.Metadata)
	} else {
		if e.Concept.Description == "" {
			e.Concept.Description = c.Description
		}
		e.Concept.Metadata = unionMetadata(e.Concept.Metadata, c.Metadata)
	}
	if e.Concept.Tier == types.TierUnset {
		e.Concept.Tier = c.Tier
	}
	e.Confidence = math.Max(e.Confidence, c.Importance)
	if !containsFold(e.Labels, c.Label) {
		e.Labels = append(e.Labels, c.Label)
	}
	if c.SourceExcerpt != "" && !slices.Contains(e.Excerpts, c.SourceExcerpt) {
		e.Excerpts = append(e.Excerpts, c.SourceExcerpt)
	}
}

// unionMetadata returns primary overlaid on secondary.
func unionMetadata(primary, secondary map[string]any) map[string]any {
	if len(primary) == 0 && len(secondary) == 0 {
		return nil
	}
	out := make(map[string]any, len(primary)+len(secondary))
	for k, v := range secondary {
		out[k] = v
	}
	for k, v := range primary {
		out[k] = v
	}
	return out
}

func normalize(c types.Concept) types.Concept {
	c.Label = strings.Join(strings.Fields(c.Label), " ")
	c.Description = strings.TrimSpace(c.Description)
	c.SourceExcerpt = strings.TrimSpace(c.SourceExcerpt)
	if math.IsNaN(c.Importance) {
		c.Importance = types.DefaultImportance
	}
	c.Importance = types.ClampUnit(c.Importance)
	c.Metadata = types.CloneMetadata(c.Metadata)
	c.Embedding = slices.Clone(c.Embedding)
	return c
}

func containsFold(list []string, s string) bool {
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}

// index finds the most similar accepted entry for an embedding.
//
// In bucketed mode the first buckets entries each seed a bucket, and every
// later entry joins the nearest bucket with room. Each bucket holds at most
// capacity members, so a lookup costs O(buckets + capacity) = O(sqrt(n)).
type index struct {
	bucketed bool
	buckets  []*bucket
	entries  []*Entry

	bucketCount int
	capacity    int
	// comparisons counts cosine evaluations.
	comparisons int
}

type bucket struct {
	centroid []float32
	sum      []float64
	members  []*Entry
}

func newIndex(n int, bucketed bool) *index {
	ix := &index{bucketed: bucketed}
	if bucketed {
		ix.bucketCount = max(int(math.Ceil(math.Sqrt(float64(n)))), 1)
		ix.capacity = 2 * ix.bucketCount
	}
	return ix
}

func (ix *index) add(e *Entry) {
	if !ix.bucketed {
		ix.entries = append(ix.entries, e)
		return
	}
	emb := e.Concept.Embedding
	var b *bucket
	if len(ix.buckets) < ix.bucketCount {
		b = &bucket{sum: make([]float64, len(emb)), centroid: make([]float32, len(emb))}
		ix.buckets = append(ix.buckets, b)
	} else {
		b = ix.nearestOpenBucket(emb)
	}
	b.members = append(b.members, e)
	inv := 1 / float64(len(b.members))
	for i, x := range emb {
		b.sum[i] += float64(x)
		b.centroid[i] = float32(b.sum[i] * inv)
	}
}

// nearestOpenBucket returns the bucket with the closest centroid that is
// below capacity. buckets*capacity is twice the batch size, so one always is.
func (ix *index) nearestOpenBucket(emb []float32) *bucket {
	var best *bucket
	bestScore := math.Inf(-1)
	for _, b := range ix.buckets {
		if len(b.members) >= ix.capacity {
			continue
		}
		ix.comparisons++
		if s := utils.CosineSimilarity(emb, b.centroid); s > bestScore {
			best, bestScore = b, s
		}
	}
	if best == nil {
		// only reachable when the batch outgrows the size it was planned for
		best = &bucket{sum: make([]float64, len(emb)), centroid: make([]float32, len(emb))}
		ix.buckets = append(ix.buckets, best)
	}
	return best
}

func (ix *index) nearestBucket(emb []float32) *bucket {
	var best *bucket
	bestScore := math.Inf(-1)
	for _, b := range ix.buckets {
		ix.comparisons++
		if s := utils.CosineSimilarity(emb, b.centroid); s > bestScore {
			best, bestScore = b, s
		}
	}
	return best
}

// best returns the most similar entry; the earliest entry wins ties.
func (ix *index) best(emb []float32) (*Entry, float64) {
	candidates := ix.entries
	if ix.bucketed {
		b := ix.nearestBucket(emb)
		if b == nil {
			return nil, 0
		}
		candidates = b.members
	}
	var best *Entry
	bestScore := math.Inf(-1)
	for _, e := range candidates {
		ix.comparisons++
		if s := utils.CosineSimilarity(emb, e.Concept.Embedding); s > bestScore {
			best, bestScore = e, s
		}
	}
	return best, bestScore
}
