package memstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// VectorIndex is an in-memory exact nearest-neighbour index over chunk
// embeddings. Entries are keyed by chunk id and are never overwritten.
//
// Embedding calls happen outside the lock; only the commit of new entries
// and the distance scan hold it.
type VectorIndex struct {
	embedder  port.Embedder
	dimension int
	logger    *slog.Logger

	mu      sync.RWMutex
	entries []domain.IndexEntry
	byID    map[string]int
	gen     uint64
}

var _ port.Retriever = (*VectorIndex)(nil)

// NewVectorIndex creates an empty index whose vectors must have the given dimension.
func NewVectorIndex(embedder port.Embedder, dimension int, logger *slog.Logger) (*VectorIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", domain.ErrInvalidInput)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorIndex{
		embedder:  embedder,
		dimension: dimension,
		logger:    logger,
		byID:      make(map[string]int),
	}, nil
}

// Len returns the number of stored entries.
func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func (x *VectorIndex) Contains(id string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.byID[id]
	return ok
}

// Generation increments every time new entries are committed.
func (x *VectorIndex) Generation() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.gen
}

// UpsertIfAbsent embeds the chunk and stores it unless its id is already
// present. It reports whether an insert happened. A present id is not
// re-embedded.
func (x *VectorIndex) UpsertIfAbsent(ctx context.Context, chunk domain.Chunk) (bool, error) {
	if x.Contains(chunk.ID) {
		return false, nil
	}

	vec, err := x.embed(ctx, chunk.Text)
	if err != nil {
		return false, fmt.Errorf("embed chunk %s: %w", chunk.ID, err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.byID[chunk.ID]; ok {
		return false, nil
	}
	x.insert(chunk, vec)
	x.gen++
	return true, nil
}

// AddIfAbsent inserts every chunk whose id is not yet present and returns
// the number inserted. All embeddings are computed before anything is
// committed, so an embedding failure leaves the index unchanged.
func (x *VectorIndex) AddIfAbsent(ctx context.Context, chunks []domain.Chunk) (int, error) {
	return x.AddIfAbsentProgress(ctx, chunks, nil)
}

// AddIfAbsentProgress is AddIfAbsent with a callback invoked after each
// embedding with the number done and the number to embed.
func (x *VectorIndex) AddIfAbsentProgress(ctx context.Context, chunks []domain.Chunk, progress func(done, total int)) (int, error) {
	type pending struct {
		chunk domain.Chunk
		vec   []float32
	}

	seen := make(map[string]bool, len(chunks))
	var todo []pending
	for _, c := range chunks {
		if seen[c.ID] || x.Contains(c.ID) {
			continue
		}
		seen[c.ID] = true
		todo = append(todo, pending{chunk: c})
	}
	if len(todo) == 0 {
		return 0, nil
	}

	for i := range todo {
		vec, err := x.embed(ctx, todo[i].chunk.Text)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %s: %w", todo[i].chunk.ID, err)
		}
		todo[i].vec = vec
		if progress != nil {
			progress(i+1, len(todo))
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	inserted := 0
	for _, p := range todo {
		if _, ok := x.byID[p.chunk.ID]; ok {
			continue
		}
		x.insert(p.chunk, p.vec)
		inserted++
	}
	if inserted > 0 {
		x.gen++
	}
	x.logger.Debug("index commit", "inserted", inserted, "total", len(x.entries))
	return inserted, nil
}

// SimilaritySearch returns up to k entries closest to the query text by
// squared Euclidean distance, nearest first. Equal distances keep insertion
// order. An empty index or k <= 0 yields no results without calling the
// embedding service.
func (x *VectorIndex) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.QueryResult, error) {
	if k <= 0 || x.Len() == 0 {
		return nil, nil
	}

	vec, err := x.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	type scored struct {
		pos  int
		dist float64
	}
	scores := make([]scored, len(x.entries))
	for i, e := range x.entries {
		scores[i] = scored{pos: i, dist: squaredL2(vec, e.Embedding)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].dist < scores[j].dist
	})

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]domain.QueryResult, k)
	for i := 0; i < k; i++ {
		e := x.entries[scores[i].pos]
		results[i] = domain.QueryResult{
			ID:    e.ID,
			Text:  e.Text,
			Score: scores[i].dist,
		}
	}
	return results, nil
}

// Search implements port.Retriever.
func (x *VectorIndex) Search(ctx context.Context, query string, k int) ([]domain.QueryResult, error) {
	return x.SimilaritySearch(ctx, query, k)
}

func (x *VectorIndex) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrServiceUnavailable) || errors.Is(err, domain.ErrDimensionMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	if len(vec) != x.dimension {
		return nil, &domain.DimensionMismatchError{Expected: x.dimension, Actual: len(vec)}
	}
	return vec, nil
}

// insert appends an entry. Must hold mu.
func (x *VectorIndex) insert(chunk domain.Chunk, vec []float32) {
	x.byID[chunk.ID] = len(x.entries)
	x.entries = append(x.entries, domain.IndexEntry{
		ID:        chunk.ID,
		Embedding: vec,
		Text:      chunk.Text,
	})
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
