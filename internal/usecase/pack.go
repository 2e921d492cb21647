package usecase

import (
	"fmt"
	"strings"
	"text/template"

	"pdfrag/internal/domain"
)

// ContextDelimiter separates retrieved chunks inside the prompt context.
const ContextDelimiter = "\n\n---\n\n"

// DefaultPromptTemplate grounds the answer in the retrieved context.
const DefaultPromptTemplate = `
Answer the question based only on the following context: {{.Context}}
---
Answer the question based on the above context: {{.Question}}
`

// PromptBuilder packs retrieved chunks into a rendered prompt.
type PromptBuilder struct {
	tmpl *template.Template
}

type promptData struct {
	Context  string
	Question string
}

// NewPromptBuilder parses a text/template using the fields .Context and
// .Question. An empty text selects DefaultPromptTemplate.
func NewPromptBuilder(text string) (*PromptBuilder, error) {
	if text == "" {
		text = DefaultPromptTemplate
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: prompt template: %v", domain.ErrInvalidInput, err)
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

// PackContext joins chunk texts in rank order.
func PackContext(results []domain.QueryResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return strings.Join(texts, ContextDelimiter)
}

// Build renders the prompt. No results gives an empty context, not an error.
func (b *PromptBuilder) Build(question string, results []domain.QueryResult) (string, error) {
	var sb strings.Builder
	err := b.tmpl.Execute(&sb, promptData{
		Context:  PackContext(results),
		Question: question,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}
