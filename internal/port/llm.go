package port

import "context"

// LLM represents a language model for text generation.
type LLM interface {
	// Complete returns the model's raw text output for the prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
