package resilient

import (
	"context"
	"log/slog"

	"pdfrag/internal/port"
)

var (
	_ port.Embedder = (*Embedder)(nil)
	_ port.LLM      = (*LLM)(nil)
)

// Embedder decorates a port.Embedder with the retry policy.
type Embedder struct {
	inner  port.Embedder
	policy *policy
}

func NewEmbedder(inner port.Embedder, opts Options, logger *slog.Logger) *Embedder {
	return &Embedder{inner: inner, policy: newPolicy(opts, logger)}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return do(ctx, e.policy, "embed", func(ctx context.Context) ([]float32, error) {
		return e.inner.Embed(ctx, text)
	})
}

func (e *Embedder) ModelName() string { return e.inner.ModelName() }

// LLM decorates a port.LLM with the retry policy.
type LLM struct {
	inner  port.LLM
	policy *policy
}

func NewLLM(inner port.LLM, opts Options, logger *slog.Logger) *LLM {
	return &LLM{inner: inner, policy: newPolicy(opts, logger)}
}

func (l *LLM) Complete(ctx context.Context, prompt string) (string, error) {
	return do(ctx, l.policy, "complete", func(ctx context.Context) (string, error) {
		return l.inner.Complete(ctx, prompt)
	})
}

func (l *LLM) ModelName() string { return l.inner.ModelName() }
