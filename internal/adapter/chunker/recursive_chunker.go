package chunker

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"pdfrag/internal/domain"
)

// DefaultSeparators are tried in order: paragraph, line, word, character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveChunker splits text at the coarsest boundary that yields pieces
// shorter than chunkSize, recursing into finer separators for pieces that are
// still too long, then merges neighbouring pieces back up to chunkSize with
// up to overlap characters repeated between consecutive chunks.
//
// Lengths are measured in runes.
type RecursiveChunker struct {
	chunkSize  int
	overlap    int
	separators []string
	logger     *slog.Logger
}

func NewRecursiveChunker(chunkSize, overlap int, separators []string, logger *slog.Logger) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecursiveChunker{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: separators,
		logger:     logger,
	}
}

// SplitPages splits every page and copies its source and page onto each chunk.
// Chunks come out grouped by page, in page order.
func (c *RecursiveChunker) SplitPages(pages []domain.PageRecord) []domain.Chunk {
	var chunks []domain.Chunk
	for _, page := range pages {
		for _, text := range c.SplitText(page.Text) {
			chunks = append(chunks, domain.Chunk{
				Source: page.Source,
				Page:   page.Page,
				Text:   text,
			})
		}
	}
	c.logger.Debug("split documents", "pages", len(pages), "chunks", len(chunks))
	return chunks
}

// SplitText splits a single text into chunks.
func (c *RecursiveChunker) SplitText(text string) []string {
	return c.split(text, c.separators)
}

func (c *RecursiveChunker) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var finer []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			finer = separators[i+1:]
			break
		}
	}

	var final, small []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < c.chunkSize {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			final = append(final, c.merge(small)...)
			small = nil
		}
		if len(finer) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, c.split(piece, finer)...)
		}
	}
	if len(small) > 0 {
		final = append(final, c.merge(small)...)
	}
	return final
}

// merge joins pieces into chunks no longer than chunkSize. When a chunk is
// emitted, leading pieces are dropped until at most overlap characters remain
// to seed the next chunk.
func (c *RecursiveChunker) merge(pieces []string) []string {
	var chunks []string
	var current []string
	total := 0

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > c.chunkSize {
			if total > c.chunkSize {
				c.logger.Warn("created a chunk longer than the configured size", "length", total, "chunk_size", c.chunkSize)
			}
			if len(current) > 0 {
				if chunk := joinPieces(current); chunk != "" {
					chunks = append(chunks, chunk)
				}
				for total > c.overlap || (total+n > c.chunkSize && total > 0) {
					total -= runeLen(current[0])
					current = current[1:]
				}
			}
		}
		current = append(current, piece)
		total += n
	}

	if chunk := joinPieces(current); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepSeparator splits text on sep, keeping sep at the start of every
// piece after the first. An empty sep splits into runes. Empty pieces are dropped.
func splitKeepSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, p := range parts[1:] {
		pieces = append(pieces, sep+p)
	}
	return pieces
}

func joinPieces(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
