package llm

import (
	"context"

	"pdfrag/internal/port"
)

var _ port.LLM = EchoLLM{}

// EchoLLM returns the prompt unchanged. Used for offline runs and to inspect
// what would be sent to a real model.
type EchoLLM struct{}

func (EchoLLM) Complete(_ context.Context, prompt string) (string, error) {
	return prompt, nil
}

func (EchoLLM) ModelName() string { return "echo" }
