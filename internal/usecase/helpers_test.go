package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"pdfrag/internal/adapter/embedding"
	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/domain"
)

// mapLoader serves fixed pages per file name found in a directory listing.
type mapLoader struct {
	mu    sync.Mutex
	files map[string][]string // base name -> page texts
	order []string
	bad   map[string]bool
}

func newMapLoader() *mapLoader {
	return &mapLoader{files: make(map[string][]string), bad: make(map[string]bool)}
}

func (l *mapLoader) add(name string, pages ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files[name] = pages
	l.order = append(l.order, name)
}

func (l *mapLoader) Load(dir string) ([]domain.PageRecord, []domain.FileReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var records []domain.PageRecord
	var reports []domain.FileReport
	for _, name := range l.order {
		source := name
		if dir != "" {
			source = filepath.Join(dir, name)
		}
		if l.bad[name] {
			reports = append(reports, domain.FileReport{Path: source, Err: domain.ErrLoadFailure})
			continue
		}
		for i, text := range l.files[name] {
			records = append(records, domain.PageRecord{Source: source, Page: i, Text: text})
		}
		reports = append(reports, domain.FileReport{Path: source, Pages: len(l.files[name])})
	}
	return records, reports, nil
}

// pipeSplitter cuts page text on "|".
type pipeSplitter struct{}

func (pipeSplitter) SplitPages(pages []domain.PageRecord) []domain.Chunk {
	var chunks []domain.Chunk
	for _, p := range pages {
		for _, part := range strings.Split(p.Text, "|") {
			if part == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{Source: p.Source, Page: p.Page, Text: part})
		}
	}
	return chunks
}

// countingEmbedder wraps the mock embedder and can be switched to fail.
type countingEmbedder struct {
	mu    sync.Mutex
	inner *embedding.MockEmbedder
	calls int
	fail  bool
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	fail := e.fail
	e.mu.Unlock()
	if fail {
		return nil, errors.New("dial tcp 127.0.0.1:11434: connection refused")
	}
	return e.inner.Embed(ctx, text)
}

func (e *countingEmbedder) ModelName() string { return "counting" }

func (e *countingEmbedder) setFail(v bool) {
	e.mu.Lock()
	e.fail = v
	e.mu.Unlock()
}

func (e *countingEmbedder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

const testDim = 256

func newTestIndex(t *testing.T) (*memstore.VectorIndex, *countingEmbedder) {
	t.Helper()
	emb := &countingEmbedder{inner: embedding.NewMockEmbedder(testDim)}
	idx, err := memstore.NewVectorIndex(emb, testDim, nil)
	require.NoError(t, err)
	return idx, emb
}

// recordingLLM returns a fixed answer and remembers the prompts it saw.
type recordingLLM struct {
	mu      sync.Mutex
	prompts []string
	answer  string
	err     error
}

func (l *recordingLLM) Complete(_ context.Context, prompt string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	return l.answer, nil
}

func (l *recordingLLM) ModelName() string { return "recording" }
