package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"pdfrag/config"
	"pdfrag/internal/adapter/fs"
	"pdfrag/internal/adapter/store"
	"pdfrag/internal/domain"
)

// SessionOptions configures a chat session.
type SessionOptions struct {
	UploadDir  string
	StoreDir   string
	ConfigHash string
	Ingest     *IngestUseCase
	Answer     *AnswerUseCase
	Logger     *slog.Logger
}

// Session owns one upload directory, one index and one upload registry.
// Starting a session wipes both directories. Calls are serialized.
type Session struct {
	id        string
	uploadDir string
	ingest    *IngestUseCase
	answer    *AnswerUseCase
	registry  *store.BoltRegistry
	logger    *slog.Logger

	mu sync.Mutex
}

// StartSession resets the session directories and opens a fresh registry.
func StartSession(opts SessionOptions) (*Session, error) {
	if opts.Ingest == nil || opts.Answer == nil {
		return nil, fmt.Errorf("%w: ingest and answer use cases are required", domain.ErrInvalidInput)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, dir := range []string{opts.UploadDir, opts.StoreDir} {
		if err := fs.ResetDir(dir); err != nil {
			return nil, fmt.Errorf("failed to reset session directory: %w", err)
		}
	}

	registry, err := store.NewBoltRegistry(config.RegistryDBPath(opts.StoreDir))
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	info := store.SessionInfo{ID: id, ConfigHash: opts.ConfigHash, StartedAt: time.Now().UTC()}
	if err := registry.SetSessionInfo(info); err != nil {
		registry.Close()
		return nil, fmt.Errorf("failed to record session: %w", err)
	}

	logger = logger.With("session", id)
	logger.Info("session started", "upload_dir", opts.UploadDir, "store_dir", opts.StoreDir)

	return &Session{
		id:        id,
		uploadDir: opts.UploadDir,
		ingest:    opts.Ingest,
		answer:    opts.Answer,
		registry:  registry,
		logger:    logger,
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) UploadDir() string {
	return s.uploadDir
}

// UploadResult reports what an upload added.
type UploadResult struct {
	Upload domain.Upload
	Ingest *IngestResult
}

// Upload stores a document in the upload directory and ingests it. A name
// the loader would not read yields ErrInvalidInput, and a name already
// uploaded in this session, or already on disk, yields ErrAlreadyExists.
// In both cases nothing is written. If ingestion fails the file is removed
// again so the upload can be retried.
func (s *Session) Upload(ctx context.Context, name string, r io.Reader) (*UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := filepath.Base(name)
	if !s.ingest.Accepts(base) {
		return nil, fmt.Errorf("%w: %s is not a supported document", domain.ErrInvalidInput, base)
	}
	seen, err := s.registry.Has(base)
	if err != nil {
		return nil, fmt.Errorf("failed to check registry: %w", err)
	}
	if seen {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyExists, base)
	}

	up, err := fs.SaveUpload(s.uploadDir, base, r)
	if err != nil {
		return nil, err
	}

	res, err := s.ingest.Ingest(ctx, s.uploadDir, nil)
	if err != nil {
		s.removeUpload(up.Path)
		return nil, err
	}

	report, ok := findReport(res.Files, up.Path)
	if !ok {
		report.Err = fmt.Errorf("%w: %s was not loaded", domain.ErrLoadFailure, up.Name)
	}
	if !report.OK() {
		s.removeUpload(up.Path)
		return &UploadResult{Upload: up, Ingest: res}, report.Err
	}
	up.ChunksInserted = report.Inserted
	up.SessionID = s.id
	if err := s.registry.Put(up); err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	s.logger.Info("uploaded document", "name", up.Name, "size", up.Size, "chunks", up.ChunksInserted)
	return &UploadResult{Upload: up, Ingest: res}, nil
}

// Sync ingests the upload directory and registers files that arrived
// without going through Upload.
func (s *Session) Sync(ctx context.Context) (*IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.ingest.Ingest(ctx, s.uploadDir, nil)
	if err != nil {
		return nil, err
	}

	for _, report := range res.Files {
		if !report.OK() {
			continue
		}
		name := filepath.Base(report.Path)
		seen, err := s.registry.Has(name)
		if err != nil {
			return res, err
		}
		if seen {
			continue
		}
		up := domain.Upload{
			Name:           name,
			Path:           report.Path,
			UploadedAt:     time.Now().UTC(),
			ChunksInserted: report.Inserted,
			SessionID:      s.id,
		}
		if info, err := os.Stat(report.Path); err == nil {
			up.Size = info.Size()
		}
		if err := s.registry.Put(up); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Info returns what the registry recorded when the session started.
func (s *Session) Info() (*store.SessionInfo, error) {
	info, err := s.registry.SessionInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to read session info: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: session info missing", domain.ErrLoadFailure)
	}
	return info, nil
}

// Files lists the documents uploaded in this session.
func (s *Session) Files() ([]domain.Upload, error) {
	return s.registry.List()
}

// HasUploads reports whether any document has been uploaded.
func (s *Session) HasUploads() bool {
	uploads, err := s.registry.List()
	return err == nil && len(uploads) > 0
}

// Ask answers a question against everything uploaded so far. Asking before
// any upload is allowed and answers with an empty context.
func (s *Session) Ask(ctx context.Context, question string) (*Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answer.Answer(ctx, question)
}

func (s *Session) Close() error {
	return s.registry.Close()
}

func (s *Session) removeUpload(path string) {
	if err := os.Remove(path); err != nil {
		s.logger.Warn("failed to remove rejected upload", "path", path, "error", err)
	}
}

func findReport(reports []domain.FileReport, path string) (domain.FileReport, bool) {
	for _, r := range reports {
		if r.Path == path {
			return r, true
		}
	}
	return domain.FileReport{}, false
}
