package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pdfrag/internal/adapter/chunkid"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// Indexer is the part of the vector index ingestion writes to.
type Indexer interface {
	AddIfAbsentProgress(ctx context.Context, chunks []domain.Chunk, progress func(done, total int)) (int, error)
	Contains(id string) bool
	Len() int
}

// IngestUseCase loads a directory of documents into the vector index.
type IngestUseCase struct {
	loader   port.PageLoader
	splitter port.Splitter
	index    Indexer
	logger   *slog.Logger
}

// NewIngestUseCase creates a new ingest use case.
func NewIngestUseCase(
	loader port.PageLoader,
	splitter port.Splitter,
	index Indexer,
	logger *slog.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		loader:   loader,
		splitter: splitter,
		index:    index,
		logger:   logger,
	}
}

// Accepts reports whether the loader reads files with this name. Loaders
// without a name filter accept everything.
func (u *IngestUseCase) Accepts(name string) bool {
	if f, ok := u.loader.(port.NameFilter); ok {
		return f.Accepts(name)
	}
	return true
}

// IngestResult contains the results of an ingest run.
type IngestResult struct {
	Examined int
	Inserted int
	Skipped  int
	Files    []domain.FileReport
	Duration time.Duration
}

// Failed returns the reports of files that could not be loaded.
func (r *IngestResult) Failed() []domain.FileReport {
	var failed []domain.FileReport
	for _, f := range r.Files {
		if !f.OK() {
			failed = append(failed, f)
		}
	}
	return failed
}

// Ingest runs load, split, identify and insert over dir. Chunks whose id is
// already indexed are skipped without being embedded, so re-running over an
// unchanged directory inserts nothing. Unreadable files are reported in the
// result; embedding failures abort the run with the index unchanged.
func (u *IngestUseCase) Ingest(ctx context.Context, dir string, progress func(done, total int)) (*IngestResult, error) {
	start := time.Now()

	pages, reports, err := u.loader.Load(dir)
	if err != nil {
		return nil, err
	}
	u.logger.Info("loaded documents", "dir", dir, "files", len(reports), "pages", len(pages),
		"elapsed", time.Since(start).Round(time.Millisecond))

	splitStart := time.Now()
	chunks := chunkid.Assign(u.splitter.SplitPages(pages))
	u.logger.Info("split documents", "chunks", len(chunks),
		"elapsed", time.Since(splitStart).Round(time.Millisecond))

	result := &IngestResult{Examined: len(chunks), Files: reports}

	perSource := make(map[string]int)
	newPerSource := make(map[string]int)
	var fresh []domain.Chunk
	for _, c := range chunks {
		perSource[c.Source]++
		if u.index.Contains(c.ID) {
			continue
		}
		fresh = append(fresh, c)
		newPerSource[c.Source]++
	}
	u.logger.Info("existing chunks in index", "count", u.index.Len())

	if len(fresh) == 0 {
		u.logger.Info("No new documents to add")
	} else {
		u.logger.Info("adding new documents", "count", len(fresh))
		addStart := time.Now()
		inserted, err := u.index.AddIfAbsentProgress(ctx, fresh, progress)
		if err != nil {
			return nil, fmt.Errorf("failed to add chunks: %w", err)
		}
		result.Inserted = inserted
		u.logger.Info("added documents", "inserted", inserted,
			"elapsed", time.Since(addStart).Round(time.Millisecond))
	}
	result.Skipped = result.Examined - result.Inserted

	for i := range result.Files {
		result.Files[i].Chunks = perSource[result.Files[i].Path]
		result.Files[i].Inserted = newPerSource[result.Files[i].Path]
	}

	result.Duration = time.Since(start)
	return result, nil
}
