// Package chunkid assigns stable identifiers to chunks.
package chunkid

import (
	"strconv"

	"pdfrag/internal/domain"
)

const missing = "None"

// PageID returns "{source}:{page}". Absent metadata renders as "None".
func PageID(source string, page int) string {
	if source == "" {
		source = missing
	}
	p := missing
	if page != domain.NoPage {
		p = strconv.Itoa(page)
	}
	return source + ":" + p
}

// Assign sets ID and ChunkIndex on every chunk, in order, and returns the
// same slice. The id of a chunk is "{source}:{page}:{chunk_index}" where
// chunk_index counts earlier chunks of the same (source, page).
//
// The counter is keyed by page id rather than by adjacency, so chunks of one
// page that arrive interleaved with other pages still get distinct indices.
// For input grouped by page, the result equals the adjacency-based numbering.
func Assign(chunks []domain.Chunk) []domain.Chunk {
	next := make(map[string]int)
	for i := range chunks {
		pageID := PageID(chunks[i].Source, chunks[i].Page)
		idx := next[pageID]
		next[pageID] = idx + 1

		chunks[i].ChunkIndex = idx
		chunks[i].ID = pageID + ":" + strconv.Itoa(idx)
	}
	return chunks
}
