// Package ai wraps the external model service behind a small capability
// interface: question generation, image OCR, answer grading, and plain
// completion. Callers treat it as opaque; responses are raw text plus
// token usage, parsed leniently by this package's parser.
package ai

import "context"

// Client is the capability contract the pipeline consumes.
type Client interface {
	GenerateQuestions(ctx context.Context, content string, count int, difficulty string) (*Response, error)
	ParseImage(ctx context.Context, data []byte, mediaType string) (*Response, error)
	GradeAnswer(ctx context.Context, question, rubric, answer string) (*Response, error)
	Complete(ctx context.Context, prompt string) (*Response, error)
	Model() string
}

// Response holds the raw model output and token usage.
type Response struct {
	Content      string
	Model        string
	PromptTokens int
	OutputTokens int
}
