package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

type countingRetriever struct {
	gen   uint64
	calls int
	err   error
}

func (r *countingRetriever) Search(_ context.Context, query string, k int) ([]domain.QueryResult, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []domain.QueryResult{{ID: query, Text: query, Score: float64(k)}}, nil
}

func (r *countingRetriever) Generation() uint64 { return r.gen }

func TestCachedRetriever_HitsWhileGenerationUnchanged(t *testing.T) {
	inner := &countingRetriever{}
	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute))
	ctx := context.Background()

	first, err := r.Search(ctx, "oil", 5)
	require.NoError(t, err)
	second, err := r.Search(ctx, "oil", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	_, err = r.Search(ctx, "oil", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "different k is a different key")
}

func TestCachedRetriever_NewGenerationMisses(t *testing.T) {
	inner := &countingRetriever{}
	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute))
	ctx := context.Background()

	_, err := r.Search(ctx, "oil", 5)
	require.NoError(t, err)

	inner.gen++
	_, err = r.Search(ctx, "oil", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedRetriever_ErrorsAreNotCached(t *testing.T) {
	inner := &countingRetriever{err: errors.New("down")}
	r := NewCachedRetriever(inner, NewQueryCache(10, time.Minute))
	ctx := context.Background()

	_, err := r.Search(ctx, "oil", 5)
	require.Error(t, err)

	inner.err = nil
	_, err = r.Search(ctx, "oil", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("q", 1, 0, []domain.QueryResult{{ID: "a"}})
	_, ok := c.Get("q", 1, 0)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("q", 1, 0)
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestQueryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewQueryCache(2, time.Minute)

	c.Put("a", 1, 0, nil)
	c.Put("b", 1, 0, nil)
	_, ok := c.Get("a", 1, 0)
	require.True(t, ok)

	c.Put("c", 1, 0, nil)

	_, ok = c.Get("b", 1, 0)
	assert.False(t, ok)
	_, ok = c.Get("a", 1, 0)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestQueryCache_ReturnsCopies(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("q", 1, 0, []domain.QueryResult{{ID: "a"}})

	got, _ := c.Get("q", 1, 0)
	got[0].ID = "mutated"

	again, _ := c.Get("q", 1, 0)
	assert.Equal(t, "a", again[0].ID)
}
