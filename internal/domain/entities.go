package domain

import "time"

// NoPage marks a page record or chunk whose page number is unknown.
const NoPage = -1

// PageRecord is the extracted text of one PDF page.
type PageRecord struct {
	Source string
	Page   int
	Text   string
}

type Chunk struct {
	ID         string
	Source     string
	Page       int
	ChunkIndex int
	Text       string
}

// IndexEntry is what the vector index stores per chunk id.
type IndexEntry struct {
	ID        string
	Embedding []float32
	Text      string
}

type QueryResult struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// FileReport is the per-file outcome of a load.
type FileReport struct {
	Path     string `json:"path"`
	Pages    int    `json:"pages"`
	Chunks   int    `json:"chunks"`
	Inserted int    `json:"inserted"`
	Err      error  `json:"-"`
}

func (r FileReport) OK() bool {
	return r.Err == nil
}

type Upload struct {
	Name           string    `json:"name"`
	Path           string    `json:"path"`
	Size           int64     `json:"size"`
	SHA256         string    `json:"sha256"`
	UploadedAt     time.Time `json:"uploaded_at"`
	ChunksInserted int       `json:"chunks_inserted"`
	SessionID      string    `json:"session_id"`
}
