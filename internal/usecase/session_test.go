package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/adapter/fs"
	"pdfrag/internal/domain"
)

// textExtractor treats every file as plain text with pages separated by form feeds.
func textExtractor(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(string(data), "CORRUPT") {
		return nil, assert.AnError
	}
	return strings.Split(string(data), "\f"), nil
}

type sessionFixture struct {
	session *Session
	emb     *countingEmbedder
	llm     *recordingLLM
	upload  string
	store   string
}

func newSession(t *testing.T) *sessionFixture {
	t.Helper()
	root := t.TempDir()
	uploadDir := filepath.Join(root, "test_data")
	storeDir := filepath.Join(root, "test_db_store")

	// Leftovers from an earlier run must disappear.
	require.NoError(t, os.MkdirAll(uploadDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, "stale.pdf"), []byte("old"), 0644))

	idx, emb := newTestIndex(t)
	loader := fs.NewPDFLoader(nil, nil).WithExtractor(textExtractor)
	ingest := NewIngestUseCase(loader, pipeSplitter{}, idx, nil)
	prompts, err := NewPromptBuilder("")
	require.NoError(t, err)
	llm := &recordingLLM{answer: "answer"}
	answer := NewAnswerUseCase(NewRetrieveUseCase(idx, 5), prompts, llm, nil)

	s, err := StartSession(SessionOptions{
		UploadDir:  uploadDir,
		StoreDir:   storeDir,
		ConfigHash: "test",
		Ingest:     ingest,
		Answer:     answer,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return &sessionFixture{session: s, emb: emb, llm: llm, upload: uploadDir, store: storeDir}
}

func TestStartSession_ResetsDirectories(t *testing.T) {
	f := newSession(t)

	entries, err := os.ReadDir(f.upload)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = os.Stat(filepath.Join(f.store, "registry.db"))
	assert.NoError(t, err)
	assert.NotEmpty(t, f.session.ID())
	assert.False(t, f.session.HasUploads())
}

func TestSession_UploadIngestsAndRecords(t *testing.T) {
	f := newSession(t)
	ctx := context.Background()

	res, err := f.session.Upload(ctx, "manual.pdf", strings.NewReader("oil|filter\fbrakes"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Ingest.Inserted)
	assert.Equal(t, 3, res.Upload.ChunksInserted)

	files, err := f.session.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "manual.pdf", files[0].Name)
	assert.Equal(t, f.session.ID(), files[0].SessionID)
	assert.True(t, f.session.HasUploads())
}

func TestSession_DuplicateUploadIsSkipped(t *testing.T) {
	f := newSession(t)
	ctx := context.Background()

	_, err := f.session.Upload(ctx, "manual.pdf", strings.NewReader("one"))
	require.NoError(t, err)
	calls := f.emb.count()

	_, err = f.session.Upload(ctx, "manual.pdf", strings.NewReader("two"))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Equal(t, calls, f.emb.count())

	data, err := os.ReadFile(filepath.Join(f.upload, "manual.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestSession_SecondUploadOnlyAddsNewChunks(t *testing.T) {
	f := newSession(t)
	ctx := context.Background()

	_, err := f.session.Upload(ctx, "a.pdf", strings.NewReader("a1|a2"))
	require.NoError(t, err)

	res, err := f.session.Upload(ctx, "b.pdf", strings.NewReader("b1"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ingest.Inserted)
	assert.Equal(t, 2, res.Ingest.Skipped)
	assert.Equal(t, 1, res.Upload.ChunksInserted)
}

func TestSession_FailedIngestRemovesUpload(t *testing.T) {
	f := newSession(t)
	f.emb.setFail(true)

	_, err := f.session.Upload(context.Background(), "a.pdf", strings.NewReader("text"))
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)

	_, statErr := os.Stat(filepath.Join(f.upload, "a.pdf"))
	assert.True(t, os.IsNotExist(statErr))
	assert.False(t, f.session.HasUploads())

	f.emb.setFail(false)
	_, err = f.session.Upload(context.Background(), "a.pdf", strings.NewReader("text"))
	assert.NoError(t, err)
}

func TestSession_CorruptUploadIsRejected(t *testing.T) {
	f := newSession(t)

	_, err := f.session.Upload(context.Background(), "bad.pdf", strings.NewReader("CORRUPT"))
	assert.ErrorIs(t, err, domain.ErrLoadFailure)
	assert.False(t, f.session.HasUploads())
}

func TestSession_NonPDFUploadIsRejected(t *testing.T) {
	f := newSession(t)
	calls := f.emb.count()

	_, err := f.session.Upload(context.Background(), "notes.txt", strings.NewReader("plain|text"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, statErr := os.Stat(filepath.Join(f.upload, "notes.txt"))
	assert.True(t, os.IsNotExist(statErr), "nothing may be written")
	assert.Equal(t, calls, f.emb.count())
	assert.False(t, f.session.HasUploads())

	files, err := f.session.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSession_UnreportedUploadIsRemoved(t *testing.T) {
	root := t.TempDir()
	uploadDir := filepath.Join(root, "uploads")
	idx, _ := newTestIndex(t)
	prompts, err := NewPromptBuilder("")
	require.NoError(t, err)

	// mapLoader has no name filter and never reports files it was not told about.
	s, err := StartSession(SessionOptions{
		UploadDir: uploadDir,
		StoreDir:  filepath.Join(root, "store"),
		Ingest:    NewIngestUseCase(newMapLoader(), pipeSplitter{}, idx, nil),
		Answer:    NewAnswerUseCase(NewRetrieveUseCase(idx, 5), prompts, &recordingLLM{}, nil),
	})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Upload(context.Background(), "ghost.pdf", strings.NewReader("text"))
	assert.ErrorIs(t, err, domain.ErrLoadFailure)

	_, statErr := os.Stat(filepath.Join(uploadDir, "ghost.pdf"))
	assert.True(t, os.IsNotExist(statErr))
	assert.False(t, s.HasUploads())
}

func TestSession_Info(t *testing.T) {
	f := newSession(t)

	info, err := f.session.Info()
	require.NoError(t, err)
	assert.Equal(t, f.session.ID(), info.ID)
	assert.Equal(t, "test", info.ConfigHash)
	assert.False(t, info.StartedAt.IsZero())
}

func TestSession_AskBeforeUpload(t *testing.T) {
	f := newSession(t)

	ans, err := f.session.Ask(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Equal(t, "answer", ans.Text)
	assert.Empty(t, ans.Sources)
	require.Len(t, f.llm.prompts, 1)
}

func TestSession_SyncRegistersDroppedFiles(t *testing.T) {
	f := newSession(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.upload, "dropped.pdf"), []byte("x|y"), 0644))

	res, err := f.session.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	files, err := f.session.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "dropped.pdf", files[0].Name)
	assert.Equal(t, 2, files[0].ChunksInserted)
	assert.Equal(t, int64(3), files[0].Size)
}
