// Package llm wraps the text-generation provider used for briefings and Q&A.
package llm

import "context"

// generates free-form text from a prompt
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextGenerationRequest) (*TextGenerationResponse, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TextGenerationRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int // 0 means use the client default
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

type TextGenerationResponse struct {
	Text  string
	Usage Usage
}

// UserPrompt builds a single-turn request.
func UserPrompt(system, prompt string, maxTokens int) TextGenerationRequest {
	return TextGenerationRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: "user", Content: prompt}},
		MaxTokens:    maxTokens,
	}
}
