package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Splitter.ChunkSize != 800 {
		t.Errorf("expected ChunkSize=800, got %d", cfg.Splitter.ChunkSize)
	}
	if cfg.Splitter.ChunkOverlap != 80 {
		t.Errorf("expected ChunkOverlap=80, got %d", cfg.Splitter.ChunkOverlap)
	}
	if cfg.Index.Dimension != 1024 {
		t.Errorf("expected Dimension=1024, got %d", cfg.Index.Dimension)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Session.UploadDir != "test_data" {
		t.Errorf("expected UploadDir=test_data, got %s", cfg.Session.UploadDir)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "rag.yaml")

	content := `
splitter:
  chunk_size: 400
index:
  dimension: 768
embedding:
  provider: mock
  timeout: 5s
retrieve:
  top_k: 3
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Splitter.ChunkSize != 400 {
		t.Errorf("expected ChunkSize=400, got %d", cfg.Splitter.ChunkSize)
	}
	if cfg.Splitter.ChunkOverlap != 80 {
		t.Errorf("expected default ChunkOverlap=80, got %d", cfg.Splitter.ChunkOverlap)
	}
	if cfg.Index.Dimension != 768 {
		t.Errorf("expected Dimension=768, got %d", cfg.Index.Dimension)
	}
	if cfg.Embedding.Provider != "mock" {
		t.Errorf("expected Provider=mock, got %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Timeout != 5*time.Second {
		t.Errorf("expected Timeout=5s, got %v", cfg.Embedding.Timeout)
	}
	if cfg.Retrieve.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Retrieve.TopK)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "rag.yaml")

	content := `
session:
  upload_dir: uploads
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Session.UploadDir != "uploads" {
		t.Errorf("expected UploadDir=uploads, got %s", cfg.Session.UploadDir)
	}
	if got := cfg.UploadPath(tmpDir); got != filepath.Join(tmpDir, "uploads") {
		t.Errorf("unexpected upload path %s", got)
	}
}

func TestStorePathAbsolute(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.StoreDir = "/var/lib/pdfrag"

	if got := cfg.StorePath("/home/user"); got != "/var/lib/pdfrag" {
		t.Errorf("expected absolute store dir to be kept, got %s", got)
	}
	if got := RegistryDBPath("/var/lib/pdfrag"); got != filepath.Join("/var/lib/pdfrag", "registry.db") {
		t.Errorf("unexpected registry path %s", got)
	}
}
