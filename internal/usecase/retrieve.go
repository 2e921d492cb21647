package usecase

import (
	"context"
	"strings"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// RetrieveUseCase handles search operations.
type RetrieveUseCase struct {
	retriever port.Retriever
	topK      int
}

// NewRetrieveUseCase creates a new retrieve use case. topK <= 0 means 5.
func NewRetrieveUseCase(retriever port.Retriever, topK int) *RetrieveUseCase {
	if topK <= 0 {
		topK = 5
	}
	return &RetrieveUseCase{
		retriever: retriever,
		topK:      topK,
	}
}

// Retrieve returns the chunks nearest to the query, nearest first. k <= 0
// uses the configured top-k. Any text is a valid query, blank included.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, k int) ([]domain.QueryResult, error) {
	if k <= 0 {
		k = u.topK
	}
	return u.retriever.Search(ctx, query, k)
}

// SearchResult is a simplified result for CLI output.
type SearchResult struct {
	Rank   int     `json:"rank"`
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Page   string  `json:"page"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

// ToSearchResults converts query results, recovering source and page from
// the chunk id.
func ToSearchResults(results []domain.QueryResult) []SearchResult {
	out := make([]SearchResult, len(results))
	for i, r := range results {
		source, page := splitChunkID(r.ID)
		out[i] = SearchResult{
			Rank:   i + 1,
			ID:     r.ID,
			Source: source,
			Page:   page,
			Score:  r.Score,
			Text:   r.Text,
		}
	}
	return out
}

// splitChunkID parses "{source}:{page}:{index}". Sources may contain colons,
// so the last two fields are split off from the right.
func splitChunkID(id string) (source, page string) {
	last := strings.LastIndex(id, ":")
	if last < 0 {
		return id, ""
	}
	rest := id[:last]
	mid := strings.LastIndex(rest, ":")
	if mid < 0 {
		return rest, ""
	}
	return rest[:mid], rest[mid+1:]
}
