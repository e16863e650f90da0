// Package llm is the client for the external text generation service used
// by proposing and challenging actors. The service is stateless
// request/response; callers must tolerate unsuccessful responses and must
// never assume the returned content is well formed.
package llm

import (
	"context"
	"time"
)

// GenerateConfig tunes a single generation call.
type GenerateConfig struct {
	Temperature   float64       `json:"temperature,omitempty"`
	MaxTokens     int           `json:"max_tokens,omitempty"`
	TopP          float64       `json:"top_p,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
	Timeout       time.Duration `json:"timeout,omitempty"`
	MaxRetries    int           `json:"max_retries,omitempty"`
	RetryDelay    time.Duration `json:"retry_delay,omitempty"`
}

// DefaultGenerateConfig returns the standard per-call budget.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Temperature: 0.7,
		MaxTokens:   4096,
		TopP:        1.0,
		Timeout:     120 * time.Second,
		MaxRetries:  3,
		RetryDelay:  time.Second,
	}
}

// GenerateRequest is one call to the text generation service.
type GenerateRequest struct {
	SystemPrompt string         `json:"system_prompt"`
	UserPrompt   string         `json:"user_prompt"`
	Config       GenerateConfig `json:"config"`
}

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResponse is the service's reply. Content is free text that the
// caller best-effort decodes; Success=false carries the error string.
type GenerateResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
	Error   string `json:"error,omitempty"`
}

// Generator is the capability actors depend on. The HTTP client implements
// it; tests substitute canned generators.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}
