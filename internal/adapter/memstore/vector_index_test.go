package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

// fakeEmbedder maps each known text to a fixed vector and counts calls.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   map[string]int
	err     error
}

func newFakeEmbedder(vectors map[string][]float32) *fakeEmbedder {
	return &fakeEmbedder{vectors: vectors, calls: make(map[string]int)}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[text]++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake" }

func chunk(id, text string) domain.Chunk {
	return domain.Chunk{ID: id, Text: text}
}

func newIndex(t *testing.T, emb *fakeEmbedder) *VectorIndex {
	t.Helper()
	idx, err := NewVectorIndex(emb, 3, nil)
	require.NoError(t, err)
	return idx
}

func TestNewVectorIndex_InvalidArgs(t *testing.T) {
	_, err := NewVectorIndex(nil, 3, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewVectorIndex(newFakeEmbedder(nil), 0, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpsertIfAbsent_InsertsOnce(t *testing.T) {
	emb := newFakeEmbedder(map[string][]float32{"alpha": {1, 0, 0}})
	idx := newIndex(t, emb)
	ctx := context.Background()

	inserted, err := idx.UpsertIfAbsent(ctx, chunk("a:0:0", "alpha"))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = idx.UpsertIfAbsent(ctx, chunk("a:0:0", "different text"))
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 0, emb.calls["different text"], "present ids must not be re-embedded")

	results, err := idx.SimilaritySearch(ctx, "alpha", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha", results[0].Text, "existing entry must not be overwritten")
}

func TestSimilaritySearch_EmptyIndex(t *testing.T) {
	emb := newFakeEmbedder(nil)
	idx := newIndex(t, emb)

	for _, k := range []int{-1, 0, 1, 5, 100} {
		results, err := idx.SimilaritySearch(context.Background(), "anything", k)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
}

func TestSimilaritySearch_OrderAndLimit(t *testing.T) {
	emb := newFakeEmbedder(map[string][]float32{
		"near":  {1, 0, 0},
		"mid":   {2, 0, 0},
		"far":   {5, 0, 0},
		"query": {0, 0, 0},
	})
	idx := newIndex(t, emb)
	ctx := context.Background()

	_, err := idx.AddIfAbsent(ctx, []domain.Chunk{
		chunk("3", "far"),
		chunk("1", "near"),
		chunk("2", "mid"),
	})
	require.NoError(t, err)

	results, err := idx.SimilaritySearch(ctx, "query", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].Text)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, "mid", results[1].Text)
	assert.Equal(t, 4.0, results[1].Score)

	results, err = idx.SimilaritySearch(ctx, "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 3, "k larger than the index returns every entry")
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSimilaritySearch_TiesKeepInsertionOrder(t *testing.T) {
	emb := newFakeEmbedder(map[string][]float32{
		"first":  {1, 1, 0},
		"second": {1, 1, 0},
		"q":      {0, 0, 0},
	})
	idx := newIndex(t, emb)
	ctx := context.Background()

	_, err := idx.UpsertIfAbsent(ctx, chunk("x", "first"))
	require.NoError(t, err)
	_, err = idx.UpsertIfAbsent(ctx, chunk("y", "second"))
	require.NoError(t, err)

	results, err := idx.SimilaritySearch(ctx, "q", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, []string{results[0].ID, results[1].ID})
}

func TestSimilaritySearch_ExactTextIsTopResult(t *testing.T) {
	emb := newFakeEmbedder(map[string][]float32{
		"engine oil capacity": {0.9, 0.1, 0.3},
		"tyre pressure":       {0.1, 0.8, 0.2},
		"wiper fluid":         {0.3, 0.3, 0.9},
	})
	idx := newIndex(t, emb)
	ctx := context.Background()

	_, err := idx.AddIfAbsent(ctx, []domain.Chunk{
		chunk("a", "tyre pressure"),
		chunk("b", "engine oil capacity"),
		chunk("c", "wiper fluid"),
	})
	require.NoError(t, err)

	results, err := idx.SimilaritySearch(ctx, "engine oil capacity", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "b", results[0].ID)
	assert.Zero(t, results[0].Score)
}

func TestAddIfAbsent_ServiceFailureLeavesIndexUnchanged(t *testing.T) {
	emb := newFakeEmbedder(nil)
	idx := newIndex(t, emb)
	ctx := context.Background()

	_, err := idx.UpsertIfAbsent(ctx, chunk("keep", "keep"))
	require.NoError(t, err)
	gen := idx.Generation()

	emb.err = errors.New("connection refused")
	inserted, err := idx.AddIfAbsent(ctx, []domain.Chunk{chunk("n1", "one"), chunk("n2", "two")})

	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Zero(t, inserted)
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, gen, idx.Generation())
}

func TestAddIfAbsent_SkipsDuplicatesWithinBatch(t *testing.T) {
	emb := newFakeEmbedder(nil)
	idx := newIndex(t, emb)

	inserted, err := idx.AddIfAbsent(context.Background(), []domain.Chunk{
		chunk("same", "one"),
		chunk("same", "two"),
		chunk("other", "three"),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 2, idx.Len())
	assert.Zero(t, emb.calls["two"])
}

func TestDimensionMismatch(t *testing.T) {
	emb := newFakeEmbedder(map[string][]float32{"short": {1, 2}})
	idx := newIndex(t, emb)
	ctx := context.Background()

	_, err := idx.UpsertIfAbsent(ctx, chunk("s", "short"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	var dm *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)
	assert.Zero(t, idx.Len())

	_, err = idx.UpsertIfAbsent(ctx, chunk("ok", "fine"))
	require.NoError(t, err)
	_, err = idx.SimilaritySearch(ctx, "short", 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestGeneration(t *testing.T) {
	idx := newIndex(t, newFakeEmbedder(nil))
	ctx := context.Background()

	assert.Zero(t, idx.Generation())
	_, err := idx.UpsertIfAbsent(ctx, chunk("a", "a"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx.Generation())

	_, err = idx.AddIfAbsent(ctx, []domain.Chunk{chunk("a", "a")})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx.Generation(), "no-op batches do not bump the generation")
}

func TestAddIfAbsentProgress(t *testing.T) {
	idx := newIndex(t, newFakeEmbedder(nil))
	ctx := context.Background()

	_, err := idx.UpsertIfAbsent(ctx, chunk("a", "a"))
	require.NoError(t, err)

	var calls [][2]int
	inserted, err := idx.AddIfAbsentProgress(ctx, []domain.Chunk{chunk("a", "a"), chunk("b", "b"), chunk("c", "c")},
		func(done, total int) { calls = append(calls, [2]int{done, total}) })

	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}
