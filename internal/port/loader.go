package port

import "pdfrag/internal/domain"

// PageLoader reads every document in a directory into page records.
type PageLoader interface {
	Load(dir string) ([]domain.PageRecord, []domain.FileReport, error)
}

// NameFilter is implemented by loaders that only read some file names.
type NameFilter interface {
	Accepts(name string) bool
}

// Splitter breaks page records into chunks without ids.
type Splitter interface {
	SplitPages(pages []domain.PageRecord) []domain.Chunk
}
