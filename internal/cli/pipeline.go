package cli

import (
	"fmt"
	"log/slog"

	"pdfrag/config"
	"pdfrag/internal/adapter/cache"
	"pdfrag/internal/adapter/chunker"
	"pdfrag/internal/adapter/embedding"
	"pdfrag/internal/adapter/fs"
	"pdfrag/internal/adapter/llm"
	"pdfrag/internal/adapter/memstore"
	"pdfrag/internal/adapter/resilient"
	"pdfrag/internal/port"
	"pdfrag/internal/usecase"
)

// pipeline is one index with everything that reads and writes it.
type pipeline struct {
	walker   *fs.Walker
	index    *memstore.VectorIndex
	ingest   *usecase.IngestUseCase
	retrieve *usecase.RetrieveUseCase
	answer   *usecase.AnswerUseCase
}

func newPipeline(cfg *config.Config, logger *slog.Logger, needLLM bool) (*pipeline, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	retry := resilienceOptions(cfg)
	retry.AttemptTimeout = cfg.Embedding.Timeout
	embedder = resilient.NewEmbedder(embedder, retry, logger)

	index, err := memstore.NewVectorIndex(embedder, cfg.Index.Dimension, logger)
	if err != nil {
		return nil, err
	}

	walker := fs.NewWalker(cfg.Index.PDFPatterns, nil)
	loader := fs.NewPDFLoader(walker, logger)
	splitter := chunker.NewRecursiveChunker(cfg.Splitter.ChunkSize, cfg.Splitter.ChunkOverlap, cfg.Splitter.Separators, logger)
	ingest := usecase.NewIngestUseCase(loader, splitter, index, logger)

	var retriever port.Retriever = index
	if cfg.Retrieve.CacheSize > 0 {
		retriever = cache.NewCachedRetriever(index, cache.NewQueryCache(cfg.Retrieve.CacheSize, cfg.Retrieve.CacheTTL))
	}
	retrieve := usecase.NewRetrieveUseCase(retriever, cfg.Retrieve.TopK)

	p := &pipeline{
		walker:   walker,
		index:    index,
		ingest:   ingest,
		retrieve: retrieve,
	}

	if needLLM {
		model, err := newLLM(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create language model: %w", err)
		}
		retry := resilienceOptions(cfg)
		retry.AttemptTimeout = cfg.LLM.Timeout
		model = resilient.NewLLM(model, retry, logger)

		prompts, err := usecase.NewPromptBuilder("")
		if err != nil {
			return nil, err
		}
		p.answer = usecase.NewAnswerUseCase(retrieve, prompts, model, logger)
	}
	return p, nil
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case "ollama", "":
		return embedding.NewOllamaEmbedder(e.Model, e.BaseURL, e.Timeout), nil
	case "openai":
		return embedding.NewOpenAIEmbedder(e.APIKeyEnv, e.Model, e.BaseURL, e.Timeout)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Index.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", e.Provider)
	}
}

func newLLM(cfg *config.Config) (port.LLM, error) {
	l := cfg.LLM
	switch l.Provider {
	case "ollama", "":
		return llm.NewOllamaLLM(l.Model, l.BaseURL, l.Timeout), nil
	case "openai":
		return llm.NewOpenAILLM(l.APIKeyEnv, l.Model, l.BaseURL, l.Timeout)
	case "echo":
		return llm.EchoLLM{}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", l.Provider)
	}
}

func resilienceOptions(cfg *config.Config) resilient.Options {
	r := cfg.Resilience
	return resilient.Options{
		MaxAttempts:       r.MaxAttempts,
		InitialWait:       r.InitialWait,
		MaxWait:           r.MaxWait,
		Jitter:            r.Jitter,
		RequestsPerSecond: r.RequestsPerSecond,
	}
}
