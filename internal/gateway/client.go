// Package gateway sends structured prompts to the external text-generation
// service over the OpenAI-compatible chat/completions wire shape. One network
// call per request, a long fixed timeout, and no retry: a failed call fails
// the caller's turn.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clearity/internal/decode"
	"clearity/internal/logging"
)

const defaultTimeout = 20 * time.Minute

// maxResponseBytes caps response reads; completions are far smaller.
const maxResponseBytes = 10 * 1024 * 1024

// Client is the completion gateway. Construct with New and share across the
// pipeline; it is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	fastModel  string
	deepModel  string
	siteURL    string
	siteName   string
	httpClient *http.Client
}

// New creates a gateway client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		fastModel: cfg.FastModel,
		deepModel: cfg.DeepModel,
		siteURL:   cfg.SiteURL,
		siteName:  cfg.SiteName,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) model(tier Tier) string {
	if tier == TierDeep {
		return c.deepModel
	}
	return c.fastModel
}

// Complete sends one completion request and returns the reply text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}

	model := c.model(req.Tier)
	body := chatRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	logging.Gateway("Sending completion request: model=%s max_tokens=%d json=%v messages=%d",
		model, req.MaxTokens, req.JSONMode, len(req.Messages))

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", c.siteURL)
	httpReq.Header.Set("X-Title", c.siteName)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	elapsed := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}

	if cr.Error != nil {
		return "", fmt.Errorf("completion API error: %s (code: %v)", cr.Error.Message, cr.Error.Code)
	}

	// A substituted model is a warning, not a failure: some providers route
	// around capacity by falling back to a sibling model.
	if cr.Model != "" && cr.Model != model {
		logging.Get(logging.CategoryGateway).Warnf("Model substitution detected: requested=%s got=%s", model, cr.Model)
	}

	c.logUsage(cr, req.MaxTokens, elapsed)

	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	content := c.extractContent(cr)
	if content == "" {
		logging.Get(logging.CategoryGateway).Warnf("Completion content empty after reasoning-field fallback: id=%s model=%s", cr.ID, cr.Model)
	}
	logging.GatewayDebug("Completion received: elapsed=%v response_len=%d", elapsed, len(content))
	return strings.TrimSpace(content), nil
}

// CompleteJSON runs Complete and decodes the reply through the resilient
// decoder, passing the request's token budget for the truncation heuristic.
func (c *Client) CompleteJSON(ctx context.Context, req Request, out interface{}) error {
	req.JSONMode = true
	text, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	return decode.Unmarshal(text, req.MaxTokens, out)
}

// extractContent reads the primary content field, falling back to the
// reasoning trace fields some backends emit instead.
func (c *Client) extractContent(cr chatResponse) string {
	msg := cr.Choices[0].Message
	if msg.Content != "" {
		return msg.Content
	}
	if msg.Reasoning != "" {
		logging.Gateway("Empty content; extracting reply from reasoning field")
		return msg.Reasoning
	}
	if len(msg.ReasoningDetails) > 0 {
		logging.Gateway("Empty content; extracting reply from reasoning_details")
		parts := make([]string, 0, len(msg.ReasoningDetails))
		for _, d := range msg.ReasoningDetails {
			if d.Text != "" {
				parts = append(parts, d.Text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

func (c *Client) logUsage(cr chatResponse, maxTokens int, elapsed time.Duration) {
	u := cr.Usage
	if u.TotalTokens == 0 {
		return
	}
	tokensPerSec := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		tokensPerSec = float64(u.CompletionTokens) / secs
	}
	logging.Gateway("Completion stats: elapsed=%v completion_tokens=%d/%d prompt_tokens=%d total=%d speed=%.1f t/s",
		elapsed, u.CompletionTokens, maxTokens, u.PromptTokens, u.TotalTokens, tokensPerSec)

	if maxTokens > 0 && u.CompletionTokens >= maxTokens*95/100 {
		logging.Get(logging.CategoryGateway).Warnf("Response likely truncated: used %d of %d tokens", u.CompletionTokens, maxTokens)
	}
}
