package gateway

import (
	"context"
	"time"
)

// Tier selects between the two configured model qualities.
type Tier string

const (
	// TierFast is the cheap, low-latency model used for context extraction,
	// graph synthesis, and reply composition.
	TierFast Tier = "fast"
	// TierDeep is the capable model used for reasoning and task derivation.
	TierDeep Tier = "deep"
)

// Message is one role-tagged prompt entry.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

// Request describes a single completion call.
type Request struct {
	Messages    []Message
	Tier        Tier
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// Completer is the completion interface consumed by the pipeline stages.
// Implemented by *Client; tests substitute scripted fakes.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	CompleteJSON(ctx context.Context, req Request, out interface{}) error
}

// Config holds gateway construction parameters.
type Config struct {
	BaseURL   string
	APIKey    string
	FastModel string
	DeepModel string
	Timeout   time.Duration
	SiteURL   string // Optional: attribution header
	SiteName  string // Optional: attribution header
}

// Wire types for the OpenAI-compatible chat/completions endpoint.

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"` // "json_object"
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			// Reasoning backends may leave content empty and emit the
			// reply in one of these trace fields instead.
			Reasoning        string `json:"reasoning,omitempty"`
			ReasoningDetails []struct {
				Text string `json:"text,omitempty"`
			} `json:"reasoning_details,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}
