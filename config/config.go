package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the PDF question-answering tool.
type Config struct {
	Session    SessionConfig    `yaml:"session"`
	Splitter   SplitterConfig   `yaml:"splitter"`
	Index      IndexConfig      `yaml:"index"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SessionConfig holds the session directories. Both are cleared and
// recreated when a chat session starts.
type SessionConfig struct {
	UploadDir string `yaml:"upload_dir"`
	StoreDir  string `yaml:"store_dir"`
}

// SplitterConfig holds text splitting configuration.
type SplitterConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`    // characters
	ChunkOverlap int      `yaml:"chunk_overlap"` // characters
	Separators   []string `yaml:"separators"`
}

// IndexConfig holds vector index configuration.
type IndexConfig struct {
	Dimension   int      `yaml:"dimension"`
	PDFPatterns []string `yaml:"pdf_patterns"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK      int           `yaml:"top_k"`
	CacheSize int           `yaml:"cache_size"` // 0 disables the query cache
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// EmbeddingConfig holds embedding service configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // "ollama", "openai", "mock"
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"` // Environment variable for API key
	Timeout   time.Duration `yaml:"timeout"`
}

// LLMConfig holds language-model service configuration.
type LLMConfig struct {
	Provider  string        `yaml:"provider"` // "ollama", "openai", "echo"
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ResilienceConfig controls retries and rate limiting of external calls.
type ResilienceConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"` // 1 disables retry
	InitialWait       time.Duration `yaml:"initial_wait"`
	MaxWait           time.Duration `yaml:"max_wait"`
	Jitter            bool          `yaml:"jitter"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 disables rate limiting
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			UploadDir: "test_data",
			StoreDir:  "test_db_store",
		},
		Splitter: SplitterConfig{
			ChunkSize:    800,
			ChunkOverlap: 80,
			Separators:   []string{"\n\n", "\n", " ", ""},
		},
		Index: IndexConfig{
			Dimension:   1024,
			PDFPatterns: []string{"*.pdf", "*.PDF"},
		},
		Retrieve: RetrieveConfig{
			TopK:      5,
			CacheSize: 64,
			CacheTTL:  5 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "mxbai-embed-large",
			BaseURL:   "http://localhost:11434",
			APIKeyEnv: "OPENAI_API_KEY",
			Timeout:   60 * time.Second,
		},
		LLM: LLMConfig{
			Provider:  "ollama",
			Model:     "stablelm-zephyr",
			BaseURL:   "http://localhost:11434",
			APIKeyEnv: "OPENAI_API_KEY",
			Timeout:   120 * time.Second,
		},
		Resilience: ResilienceConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     10 * time.Second,
			Jitter:      true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for rag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "rag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".rag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// UploadPath resolves the upload directory against root.
func (c *Config) UploadPath(root string) string {
	return resolve(root, c.Session.UploadDir)
}

// StorePath resolves the store directory against root.
func (c *Config) StorePath(root string) string {
	return resolve(root, c.Session.StoreDir)
}

// RegistryDBPath returns the path to the session's upload registry.
func RegistryDBPath(storeDir string) string {
	return filepath.Join(storeDir, "registry.db")
}

func resolve(root, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}
