package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// AnswerUseCase answers questions from retrieved context.
type AnswerUseCase struct {
	retrieve *RetrieveUseCase
	prompts  *PromptBuilder
	llm      port.LLM
	logger   *slog.Logger
}

func NewAnswerUseCase(retrieve *RetrieveUseCase, prompts *PromptBuilder, llm port.LLM, logger *slog.Logger) *AnswerUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerUseCase{
		retrieve: retrieve,
		prompts:  prompts,
		llm:      llm,
		logger:   logger,
	}
}

// Answer is the outcome of one question.
type Answer struct {
	Question string               `json:"question"`
	Prompt   string               `json:"-"`
	Text     string               `json:"answer"`
	Sources  []domain.QueryResult `json:"sources"`
	Duration time.Duration        `json:"duration"`
}

// Prepare retrieves context and renders the prompt without calling the model.
func (u *AnswerUseCase) Prepare(ctx context.Context, question string) (*Answer, error) {
	results, err := u.retrieve.Retrieve(ctx, question, 0)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		u.logger.Warn("no context retrieved, answering without documents")
	}

	prompt, err := u.prompts.Build(question, results)
	if err != nil {
		return nil, err
	}
	return &Answer{Question: question, Prompt: prompt, Sources: results}, nil
}

// Answer retrieves the top-k chunks for the question, renders the prompt and
// returns the model output verbatim.
func (u *AnswerUseCase) Answer(ctx context.Context, question string) (*Answer, error) {
	start := time.Now()

	ans, err := u.Prepare(ctx, question)
	if err != nil {
		return nil, err
	}

	text, err := u.llm.Complete(ctx, ans.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	ans.Text = text
	ans.Duration = time.Since(start)

	u.logger.Debug("answered question", "model", u.llm.ModelName(),
		"sources", len(ans.Sources), "elapsed", ans.Duration.Round(time.Millisecond))
	return ans, nil
}
