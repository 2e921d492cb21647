package port

import (
	"context"

	"pdfrag/internal/domain"
)

// Retriever defines the interface for searching indexed content.
type Retriever interface {
	// Search returns at most k results ordered by ascending distance.
	Search(ctx context.Context, query string, k int) ([]domain.QueryResult, error)
}
